package rimage

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Color is an opaque 8 bit per channel RGB color.
type Color struct {
	R, G, B uint8
}

// NewColor returns the color with the given channels.
func NewColor(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

func (c Color) String() string {
	return fmt.Sprintf("%s (%d,%d,%d)", c.Hex(), c.R, c.G, c.B)
}

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return c.toColorful().Hex()
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{c.R, c.G, c.B, 255}.RGBA()
}

// NRGBA returns the color as an opaque color.NRGBA.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{c.R, c.G, c.B, 255}
}

func (c Color) toColorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// NewColorFromHex parses a #rrggbb or #rgb string.
func NewColorFromHex(hex string) (Color, error) {
	cc, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, errors.Wrapf(err, "couldn't parse hex (%s)", hex)
	}
	r, g, b := cc.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// NewColorFromColor converts any color to a Color. Translucent colors are
// un-premultiplied and the alpha channel is discarded.
func NewColorFromColor(c color.Color) Color {
	switch cc := c.(type) {
	case Color:
		return cc
	case color.NRGBA:
		return Color{R: cc.R, G: cc.G, B: cc.B}
	}
	cc, ok := colorful.MakeColor(c)
	if !ok {
		// fully transparent
		return Color{}
	}
	r, g, b := cc.RGB255()
	return Color{R: r, G: g, B: b}
}

// Common colors.
var (
	Black = NewColor(0, 0, 0)
	White = NewColor(255, 255, 255)
	Red   = NewColor(255, 0, 0)
	Green = NewColor(0, 255, 0)
	Blue  = NewColor(0, 0, 255)
)

// TheColorModel is the color.Model for Color.
var TheColorModel = color.ModelFunc(func(c color.Color) color.Color {
	return NewColorFromColor(c)
})
