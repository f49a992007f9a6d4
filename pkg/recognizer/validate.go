package recognizer

import (
	"bytes"
	"image"
	"mime"
	"slices"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var allowedContentTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
}

var allowedFormats = []string{
	"jpeg",
	"png",
}

// CheckContentType accepts JPEG and PNG uploads by their declared media type.
func CheckContentType(contentType string) error {
	if mediatype, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediatype
	}

	contentType = strings.ToLower(contentType)

	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotImage
	}

	if !slices.Contains(allowedContentTypes, contentType) {
		return ErrUnsupportedFormat
	}

	return nil
}

// CheckSize rejects payloads above the limit.
func (r *Recognizer) CheckSize(size int64) error {
	if size > r.maxSize {
		return &SizeError{Limit: r.maxSize}
	}

	return nil
}

// ValidateImage decodes the image header and returns the detected format.
// Other decodable formats are reported as unsupported rather than invalid.
func (r *Recognizer) ValidateImage(data []byte) (string, error) {
	if err := r.CheckSize(int64(len(data))); err != nil {
		return "", err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))

	if err != nil {
		r.logger.Error("image validation failed", "error", err)
		return "", ErrInvalidImage
	}

	if !slices.Contains(allowedFormats, format) {
		return "", ErrUnsupportedFormat
	}

	return format, nil
}
