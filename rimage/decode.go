package rimage

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"go.viam.com/painter/utils"
)

// ErrImageDecode is returned, wrapped, whenever image bytes cannot be turned into an Image.
var ErrImageDecode = errors.New("cannot decode image")

// DecodeImage decodes encoded image bytes of the given mime type. An empty mime type
// sniffs the format among every registered decoder.
func DecodeImage(data []byte, mimeType string) (*Image, error) {
	var decode func(r *bytes.Reader) (image.Image, error)
	switch mimeType {
	case utils.MimeTypeJPEG:
		decode = func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) }
	case utils.MimeTypePNG:
		decode = func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) }
	case utils.MimeTypeBMP:
		decode = func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) }
	case utils.MimeTypeTIFF:
		decode = func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) }
	case utils.MimeTypeWebP:
		decode = func(r *bytes.Reader) (image.Image, error) { return webp.Decode(r) }
	case utils.MimeTypeQOI:
		decode = func(r *bytes.Reader) (image.Image, error) { return qoi.Decode(r) }
	case utils.MimeTypePPM:
		decode = func(r *bytes.Reader) (image.Image, error) { return ppm.Decode(r) }
	case "":
		decode = func(r *bytes.Reader) (image.Image, error) {
			img, _, err := image.Decode(r)
			return img, err
		}
	default:
		return nil, errors.Wrapf(ErrImageDecode, "unsupported mime type %q", mimeType)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(ErrImageDecode, "%s: %v", mimeTypeOrSniffed(mimeType), err)
	}
	out := NewImageFromStdImage(img)
	if out.Width() == 0 || out.Height() == 0 {
		return nil, errors.Wrap(ErrImageDecode, "image is empty")
	}
	return out, nil
}

func mimeTypeOrSniffed(mimeType string) string {
	if mimeType == "" {
		return "sniffed format"
	}
	return mimeType
}

// Raw pixel encodings as named by sensor_msgs/Image.
const (
	EncodingRGB8  = "rgb8"
	EncodingBGR8  = "bgr8"
	EncodingRGBA8 = "rgba8"
	EncodingBGRA8 = "bgra8"
	EncodingMono8 = "mono8"
)

// DecodeRaw builds an Image from uncompressed pixel rows. step is the length of one row
// in bytes and may include padding; zero means tightly packed.
func DecodeRaw(data []byte, encoding string, width, height, step int) (*Image, error) {
	var channels int
	var pixel func(p []byte) Color
	switch encoding {
	case EncodingRGB8:
		channels = 3
		pixel = func(p []byte) Color { return Color{R: p[0], G: p[1], B: p[2]} }
	case EncodingBGR8:
		channels = 3
		pixel = func(p []byte) Color { return Color{R: p[2], G: p[1], B: p[0]} }
	case EncodingRGBA8:
		channels = 4
		pixel = func(p []byte) Color { return Color{R: p[0], G: p[1], B: p[2]} }
	case EncodingBGRA8:
		channels = 4
		pixel = func(p []byte) Color { return Color{R: p[2], G: p[1], B: p[0]} }
	case EncodingMono8:
		channels = 1
		pixel = func(p []byte) Color { return Color{R: p[0], G: p[0], B: p[0]} }
	default:
		return nil, errors.Wrapf(ErrImageDecode, "unsupported raw encoding %q", encoding)
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrImageDecode, "invalid raw image size %dx%d", width, height)
	}
	if step == 0 {
		step = width * channels
	}
	if step < width*channels {
		return nil, errors.Wrapf(ErrImageDecode, "row step %d too small for %d %s pixels", step, width, encoding)
	}
	if len(data) < step*(height-1)+width*channels {
		return nil, errors.Wrapf(ErrImageDecode, "raw %s data has %d bytes, need %d", encoding, len(data), step*height)
	}

	out := NewImage(width, height)
	for y := 0; y < height; y++ {
		row := data[y*step:]
		for x := 0; x < width; x++ {
			out.SetXY(x, y, pixel(row[x*channels:]))
		}
	}
	return out, nil
}
