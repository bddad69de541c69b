package types

import (
	"fmt"
	"strings"
)

// Colour is an ARGB tuple over byte channels. Purely informational; gameplay
// never reads it.
type Colour struct {
	A, R, G, B uint8
}

// RGB builds an opaque colour.
func RGB(r, g, b uint8) Colour { return Colour{A: 0xFF, R: r, G: g, B: b} }

// String renders "RRGGBB", or "AARRGGBB" when not fully opaque.
func (c Colour) String() string {
	if c.A != 0xFF {
		return fmt.Sprintf("%02X%02X%02X%02X", c.A, c.R, c.G, c.B)
	}
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColour reads "RRGGBB" or "AARRGGBB" hex, with an optional leading '#'.
func ParseColour(s string) (Colour, error) {
	s = strings.TrimPrefix(s, "#")
	var c Colour
	switch len(s) {
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
			return Colour{}, fmt.Errorf("malformed colour %q", s)
		}
		c.A = 0xFF
	case 8:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x%02x", &c.A, &c.R, &c.G, &c.B); err != nil {
			return Colour{}, fmt.Errorf("malformed colour %q", s)
		}
	default:
		return Colour{}, fmt.Errorf("malformed colour %q", s)
	}
	return c, nil
}
