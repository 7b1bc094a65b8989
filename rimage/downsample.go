package rimage

import (
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Downsample shrinks img by an integer ratio in both directions, averaging each
// ratio x ratio block of pixels. Trailing rows and columns that do not fill a
// whole block are dropped. A ratio of 1 returns img unchanged.
func Downsample(img *Image, ratio int) (*Image, error) {
	if ratio < 1 {
		return nil, errors.Errorf("downsample ratio must be at least 1, got %d", ratio)
	}
	if ratio == 1 {
		return img, nil
	}
	w, h := img.Width()/ratio, img.Height()/ratio
	if w == 0 || h == 0 {
		return nil, errors.Errorf("cannot downsample %dx%d image by %d", img.Width(), img.Height(), ratio)
	}
	cropped := imaging.CropAnchor(img.ToNRGBA(), w*ratio, h*ratio, imaging.TopLeft)
	return NewImageFromStdImage(imaging.Resize(cropped, w, h, imaging.Box)), nil
}
