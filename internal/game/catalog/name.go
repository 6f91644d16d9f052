package catalog

import (
	"regexp"
	"strings"
	"unicode"
)

var camelBoundary = regexp.MustCompile(`(\w)([A-Z])`)

// DeriveName turns a declaring identity such as "TrottierTown" or
// "Tic_Tac_Toe_House" into a display name. Underscores become spaces,
// otherwise CamelCase is split; short words that are not acronyms are
// lowercased and the first letter is capitalized.
func DeriveName(id string) string {
	if id == "" {
		return ""
	}
	var spaced string
	if strings.Contains(id, "_") {
		spaced = strings.ReplaceAll(id, "_", " ")
	} else {
		spaced = camelBoundary.ReplaceAllString(id, "${1} ${2}")
	}
	words := strings.Fields(spaced)
	for i, w := range words {
		if n := len([]rune(w)); n > 1 && n <= 3 && !isUpper(w) {
			words[i] = strings.ToLower(w)
		}
	}
	name := []rune(strings.Join(words, " "))
	if len(name) == 0 {
		return ""
	}
	name[0] = unicode.ToUpper(name[0])
	return string(name)
}

// isUpper reports whether w has at least one cased letter and no lowercase ones.
func isUpper(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
