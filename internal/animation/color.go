package animation

import "strings"

// Color is an RGB triple. Brightness scaling is applied at render time,
// so stored colors are always full-range.
type Color struct {
	R, G, B uint8
}

// Frame is one full pixel buffer for the ring, index 0 at the reference
// pixel, increasing clockwise.
type Frame []Color

// Strip receives rendered frames. Hardware implementations live in
// internal/leds; tests use a fake.
type Strip interface {
	// WriteFrame pushes a full frame to the LEDs.
	// Must not block beyond a single wire transfer.
	WriteFrame(Frame) error
}

// palette maps lowercase color names to RGB values.
var palette = map[string]Color{
	"red":      {255, 0, 0},
	"green":    {0, 255, 0},
	"blue":     {0, 0, 255},
	"yellow":   {255, 255, 0},
	"cyan":     {0, 255, 255},
	"magenta":  {255, 0, 255},
	"white":    {255, 255, 255},
	"orange":   {255, 165, 0},
	"purple":   {128, 0, 128},
	"pink":     {255, 192, 203},
	"lime":     {0, 255, 0},
	"teal":     {0, 128, 128},
	"lavender": {230, 230, 250},
	"brown":    {165, 42, 42},
	"beige":    {245, 245, 220},
	"maroon":   {128, 0, 0},
	"mint":     {189, 252, 201},
	"olive":    {128, 128, 0},
	"coral":    {255, 127, 80},
	"navy":     {0, 0, 128},
	"grey":     {128, 128, 128},
	"gray":     {128, 128, 128},
	"black":    {0, 0, 0},
	"off":      {0, 0, 0},
}

// DefaultColor is the fallback for unknown color names.
var DefaultColor = Color{R: 255} // red

// ParseColor looks up a named color, case-insensitively.
// The second return value reports whether the name was known.
func ParseColor(name string) (Color, bool) {
	c, ok := palette[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Scale multiplies every channel by scale (0.0-1.0) and the ring
// brightness b (0-255), truncating to integers.
func (c Color) Scale(scale float64, b uint8) Color {
	f := scale * float64(b) / 255
	return Color{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
	}
}

// Wheel maps a position 0-255 onto the rainbow through three linear
// segments (R->G, G->B, B->R).
func Wheel(pos int) Color {
	pos %= 256
	if pos < 0 {
		pos += 256
	}
	switch {
	case pos < 85:
		return Color{uint8(pos * 3), uint8(255 - pos*3), 0}
	case pos < 170:
		pos -= 85
		return Color{uint8(255 - pos*3), 0, uint8(pos * 3)}
	default:
		pos -= 170
		return Color{0, uint8(pos * 3), uint8(255 - pos*3)}
	}
}
