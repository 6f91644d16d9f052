package footprint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlManifestFile is the top-level YAML structure for the asset manifest.
type yamlManifestFile struct {
	TileSize int                  `yaml:"tile_size"`
	Assets   map[string]yamlAsset `yaml:"assets"`
}

// yamlAsset describes one image. Either rows/cols or width/height (pixels) may be given.
type yamlAsset struct {
	Rows     int    `yaml:"rows"`
	Cols     int    `yaml:"cols"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	RenderID string `yaml:"render_id"`
}

// DefaultTileSize is the pixel edge of one grid cell.
const DefaultTileSize = 16

// Manifest is a Provider backed by a static asset table. Kinds absent from
// the table occupy a single cell.
type Manifest struct {
	assets map[string]asset
}

type asset struct {
	rows, cols int
	renderID   string
}

// LoadManifestFromFile reads an asset manifest YAML file.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a Manifest or a non-nil error.
func LoadManifestFromFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset manifest %s: %w", path, err)
	}
	return LoadManifestFromBytes(data)
}

// LoadManifestFromBytes parses an asset manifest. Pixel sizes are converted
// with integer division by tile_size, so an image narrower than one tile
// yields a malformed zero dimension that Registry.Resolve rejects.
//
// Postcondition: Returns a Manifest or a non-nil error.
func LoadManifestFromBytes(data []byte) (*Manifest, error) {
	var file yamlManifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing asset manifest YAML: %w", err)
	}
	tile := file.TileSize
	if tile <= 0 {
		tile = DefaultTileSize
	}

	m := &Manifest{assets: make(map[string]asset, len(file.Assets))}
	for kind, ya := range file.Assets {
		a := asset{rows: ya.Rows, cols: ya.Cols, renderID: ya.RenderID}
		if a.rows == 0 && a.cols == 0 && (ya.Width > 0 || ya.Height > 0) {
			a.rows = ya.Height / tile
			a.cols = ya.Width / tile
		} else if a.rows == 0 && a.cols == 0 {
			a.rows, a.cols = 1, 1
		}
		m.assets[kind] = a
	}
	return m, nil
}

// NewManifest builds a Manifest directly from sizes, mainly for tests.
func NewManifest(sizes map[string]Size) *Manifest {
	m := &Manifest{assets: make(map[string]asset, len(sizes))}
	for kind, s := range sizes {
		m.assets[kind] = asset{rows: s.Rows, cols: s.Cols}
	}
	return m
}

// Footprint implements Provider.
func (m *Manifest) Footprint(kind string) (int, int, error) {
	a, ok := m.assets[kind]
	if !ok {
		return 1, 1, nil
	}
	return a.rows, a.cols, nil
}

// RenderID implements Provider.
func (m *Manifest) RenderID(kind string) string {
	if a, ok := m.assets[kind]; ok && a.renderID != "" {
		return a.renderID
	}
	return kind
}

// Len returns the number of declared assets.
func (m *Manifest) Len() int {
	return len(m.assets)
}
