package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const dataURLPrefix = "data:"

// ImageRef is an immutable handle to image bytes and their MIME type. Edits
// never mutate an ImageRef; they always produce a new one. The zero value
// represents "no image".
type ImageRef struct {
	mimeType string
	data     string
}

// NewImageRef copies data into a new ImageRef.
func NewImageRef(mimeType string, data []byte) ImageRef {
	return ImageRef{
		mimeType: strings.ToLower(strings.TrimSpace(mimeType)),
		data:     string(data),
	}
}

// ParseDataURL decodes a base64 data URL such as "data:image/png;base64,...".
func ParseDataURL(raw string) (ImageRef, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, dataURLPrefix) {
		return ImageRef{}, fmt.Errorf("%w: missing data URL prefix", ErrInvalidImage)
	}
	header, payload, ok := strings.Cut(raw[len(dataURLPrefix):], ",")
	if !ok {
		return ImageRef{}, fmt.Errorf("%w: missing data URL payload", ErrInvalidImage)
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return ImageRef{}, fmt.Errorf("%w: data URL is not base64 encoded", ErrInvalidImage)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageRef{}, fmt.Errorf("%w: decode payload: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return ImageRef{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	return NewImageRef(mimeType, data), nil
}

// IsZero reports whether the reference points at no image.
func (r ImageRef) IsZero() bool {
	return r.data == ""
}

func (r ImageRef) MIMEType() string {
	return r.mimeType
}

func (r ImageRef) Len() int {
	return len(r.data)
}

// Bytes returns a copy of the image bytes.
func (r ImageRef) Bytes() []byte {
	return []byte(r.data)
}

// Equal reports whether both references carry the same MIME type and bytes.
func (r ImageRef) Equal(other ImageRef) bool {
	return r.mimeType == other.mimeType && r.data == other.data
}

// DataURL renders the image as a base64 data URL. The zero value renders as "".
func (r ImageRef) DataURL() string {
	if r.IsZero() {
		return ""
	}
	return dataURLPrefix + r.mimeType + ";base64," + base64.StdEncoding.EncodeToString([]byte(r.data))
}

// Extension returns the file extension used when the image is downloaded.
func (r ImageRef) Extension() string {
	switch r.mimeType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

// IsImageMIME reports whether mimeType names an image media type.
func IsImageMIME(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mimeType, "image/") && len(mimeType) > len("image/")
}
