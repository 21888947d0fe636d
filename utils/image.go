package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo describes an image without decoding its pixels
type ImageInfo struct {
	Format   string
	MIMEType string
	Width    int
	Height   int
}

// SniffImage reads only the image header to find its format and dimensions.
func SniffImage(data []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a recognized image: %w", err)
	}
	return &ImageInfo{
		Format:   format,
		MIMEType: MimeTypeFromFormat(format),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// MimeTypeFromFormat maps an image package format name to its MIME type
func MimeTypeFromFormat(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// GetExtFromMimeType picks a file extension for a saved image
func GetExtFromMimeType(mimeType string) string {
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	default:
		return ".png"
	}
}

// IsDataURI reports whether s uses the data: scheme
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// StripDataURIPrefix removes a leading "data:<mime>;base64," if present
func StripDataURIPrefix(s string) string {
	if !IsDataURI(s) {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ToDataURI wraps base64 payload b64 in a data URI. Payloads that already
// carry the scheme are passed through.
func ToDataURI(mimeType, b64 string) string {
	if IsDataURI(b64) {
		return b64
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + b64
}

// DecodeDataURI returns the bytes and declared MIME type of a base64 data URI
func DecodeDataURI(s string) ([]byte, string, error) {
	if !IsDataURI(s) {
		return nil, "", fmt.Errorf("not a data URI")
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return nil, "", fmt.Errorf("malformed data URI: missing payload")
	}
	meta := s[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("unsupported data URI encoding %q", meta)
	}
	data, err := base64.StdEncoding.DecodeString(StripDataURIPrefix(s))
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, strings.TrimSuffix(meta, ";base64"), nil
}
