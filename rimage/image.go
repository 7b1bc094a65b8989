// Package rimage holds RGB images and the decoders and filters used to produce them.
package rimage

import (
	"image"
	"image/color"
)

// Image is a dense row major RGB image. It is not safe for concurrent mutation
// but any number of readers may share it.
type Image struct {
	data          []Color
	width, height int
}

// NewImage returns a black image of the given size.
func NewImage(width, height int) *Image {
	return &Image{
		data:   make([]Color, width*height),
		width:  width,
		height: height,
	}
}

// NewImageFromStdImage copies any image.Image into an Image whose origin is (0, 0).
func NewImageFromStdImage(img image.Image) *Image {
	if ri, ok := img.(*Image); ok {
		return ri
	}
	bounds := img.Bounds()
	out := NewImage(bounds.Dx(), bounds.Dy())
	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < out.height; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			for x := 0; x < out.width; x++ {
				out.data[y*out.width+x] = Color{R: row[x*4], G: row[x*4+1], B: row[x*4+2]}
			}
		}
	default:
		for y := 0; y < out.height; y++ {
			for x := 0; x < out.width; x++ {
				out.data[y*out.width+x] = NewColorFromColor(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	}
	return out
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return TheColorModel
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	if !i.In(x, y) {
		return Color{}
	}
	return i.GetXY(x, y)
}

// In returns whether (x, y) lies within the image.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

// Width returns the number of columns.
func (i *Image) Width() int {
	return i.width
}

// Height returns the number of rows.
func (i *Image) Height() int {
	return i.height
}

// Get returns the color at p.
func (i *Image) Get(p image.Point) Color {
	return i.GetXY(p.X, p.Y)
}

// GetXY returns the color at column x and row y.
func (i *Image) GetXY(x, y int) Color {
	return i.data[(y*i.width)+x]
}

// SetXY sets the color at column x and row y.
func (i *Image) SetXY(x, y int, c Color) {
	i.data[(y*i.width)+x] = c
}

// Fill sets every pixel to c.
func (i *Image) Fill(c Color) {
	for k := range i.data {
		i.data[k] = c
	}
}

// ToNRGBA returns a copy of the image as an *image.NRGBA.
func (i *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(i.Bounds())
	for k, c := range i.data {
		out.Pix[k*4] = c.R
		out.Pix[k*4+1] = c.G
		out.Pix[k*4+2] = c.B
		out.Pix[k*4+3] = 255
	}
	return out
}
