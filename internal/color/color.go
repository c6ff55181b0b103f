// Package color provides basic color definitions for a chess game
package color

import (
	"fmt"
	"strings"
)

// Color represent a chess color
type Color string

// Possible color variations in a chess game
const (
	White Color = "white"
	Black Color = "black"
)

// Opp returns the opposite color for the given color.
func (c Color) Opp() Color {
	if c == White {
		return Black
	}

	return White
}

// Title returns the capitalized color name used in human readable results.
func (c Color) Title() string {
	if c == White {
		return "White"
	}

	return "Black"
}

// Valid reports whether c is one of the two playing colors.
func (c Color) Valid() bool {
	return c == White || c == Black
}

// Parse accepts the long and short color forms ("white", "w", ...).
func Parse(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}

	return "", fmt.Errorf("unknown color %q", s)
}
