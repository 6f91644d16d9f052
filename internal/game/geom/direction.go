package geom

import (
	"fmt"
	"strings"
)

// Direction is one of the four grid movement directions.
type Direction string

// Movement directions.
const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions contains all movement directions.
var Directions = []Direction{Up, Down, Left, Right}

// ParseDirection converts user input into a Direction.
//
// Postcondition: Returns the direction, or an error if s names no direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("invalid direction %q", s)
	}
	return d, nil
}

// Valid reports whether d is one of the four movement directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Delta returns the unit offset for d. An invalid direction yields the origin.
func (d Direction) Delta() Coord {
	switch d {
	case Up:
		return Coord{Row: -1}
	case Down:
		return Coord{Row: 1}
	case Left:
		return Coord{Col: -1}
	case Right:
		return Coord{Col: 1}
	default:
		return Coord{}
	}
}

// Opposite returns the reverse of d, or "" for an invalid direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return ""
	}
}
