package ocr

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// EXIF orientation values we act on. Mirrored variants (2, 4, 5, 7) are left as-is.
const (
	OrientationNormal    = 1
	OrientationRotate180 = 3
	OrientationRotate270 = 6 // camera rotated clockwise; counter-clockwise 270 restores it
	OrientationRotate90  = 8
)

// ReadOrientation returns the EXIF orientation tag, or OrientationNormal when
// the image carries no EXIF block or no orientation tag.
func ReadOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return OrientationNormal
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return OrientationNormal
	}
	v, err := tag.Int(0)
	if err != nil {
		return OrientationNormal
	}
	return v
}

// Orient rotates img counter-clockwise by the angle the orientation tag calls
// for. Rotations are lossless and expand the canvas so nothing is cropped.
// The second return reports whether a rotation was applied.
func Orient(img image.Image, orientation int) (image.Image, bool) {
	switch orientation {
	case OrientationRotate180:
		return imaging.Rotate180(img), true
	case OrientationRotate270:
		return imaging.Rotate270(img), true
	case OrientationRotate90:
		return imaging.Rotate90(img), true
	default:
		return img, false
	}
}

// Rotates reports whether Orient would rotate an image with this tag.
func Rotates(orientation int) bool {
	switch orientation {
	case OrientationRotate180, OrientationRotate270, OrientationRotate90:
		return true
	}
	return false
}

// DecodeOriented decodes raw image bytes and applies the EXIF orientation.
func DecodeOriented(data []byte) (image.Image, int, error) {
	orientation := ReadOrientation(bytes.NewReader(data))
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, orientation, err
	}
	img, _ = Orient(img, orientation)
	return img, orientation, nil
}
