package utils

import "strings"

const (
	// MimeTypeJPEG is regular jpgs.
	MimeTypeJPEG = "image/jpeg"

	// MimeTypePNG is regular pngs.
	MimeTypePNG = "image/png"

	// MimeTypeBMP is windows bitmaps.
	MimeTypeBMP = "image/bmp"

	// MimeTypeTIFF is tiff images.
	MimeTypeTIFF = "image/tiff"

	// MimeTypeWebP is webp images.
	MimeTypeWebP = "image/webp"

	// MimeTypeQOI is for .qoi "Quite OK Image" for lossless, fast encoding/decoding.
	MimeTypeQOI = "image/qoi"

	// MimeTypePPM is the netpbm pixmap family.
	MimeTypePPM = "image/x-portable-pixmap"

	// MimeTypePCD is for .pcd pointcloud files.
	MimeTypePCD = "pointcloud/pcd"
)

var extToMime = map[string]string{
	".jpg":  MimeTypeJPEG,
	".jpeg": MimeTypeJPEG,
	".png":  MimeTypePNG,
	".bmp":  MimeTypeBMP,
	".tif":  MimeTypeTIFF,
	".tiff": MimeTypeTIFF,
	".webp": MimeTypeWebP,
	".qoi":  MimeTypeQOI,
	".ppm":  MimeTypePPM,
	".pcd":  MimeTypePCD,
}

// MimeTypeFromExtension returns the mime type for a file extension such as ".png",
// or the empty string when it is unknown.
func MimeTypeFromExtension(ext string) string {
	return extToMime[strings.ToLower(ext)]
}
