package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestMimeTypeFromExtension(t *testing.T) {
	test.That(t, MimeTypeFromExtension(".PNG"), test.ShouldEqual, MimeTypePNG)
	test.That(t, MimeTypeFromExtension(".jpeg"), test.ShouldEqual, MimeTypeJPEG)
	test.That(t, MimeTypeFromExtension(".qoi"), test.ShouldEqual, MimeTypeQOI)
	test.That(t, MimeTypeFromExtension(".ppm"), test.ShouldEqual, MimeTypePPM)
	test.That(t, MimeTypeFromExtension(".xyz"), test.ShouldBeEmpty)
}
