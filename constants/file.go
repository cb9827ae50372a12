package constants

import "strings"

const (
	MIMEPDF  = "application/pdf"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEHEIC = "image/heic"
	MIMEHEIF = "image/heif"
)

// ImageMIMEPrefix is the prefix every OCR-eligible file_type carries.
const ImageMIMEPrefix = "image/"

// NormalizeMIME lowercases and strips parameters ("image/JPEG; q=1" -> "image/jpeg").
func NormalizeMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// IsImageMIME reports whether the document is an image the OCR stage should read.
func IsImageMIME(mime string) bool {
	return strings.HasPrefix(NormalizeMIME(mime), ImageMIMEPrefix)
}

func IsPDFMIME(mime string) bool {
	return NormalizeMIME(mime) == MIMEPDF
}

// IsHEICMIME reports whether the image needs an external HEIC/HEIF conversion first.
func IsHEICMIME(mime string) bool {
	m := NormalizeMIME(mime)
	return m == MIMEHEIC || m == MIMEHEIF
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsHEICExt covers uploads whose stored MIME type is generic but whose name is not.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}
