// Package storage persists uploaded item photos and hands back the reference
// stored on the item.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// Upload is a photo received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Uploader stores photos. Upload returns the public reference of the stored
// image. Delete removes a previously uploaded image; references it does not
// own are ignored.
type Uploader interface {
	Upload(ctx context.Context, u Upload) (string, error)
	Delete(ctx context.Context, ref string) error
}

// formatMIME maps image.DecodeConfig format names to content types.
var formatMIME = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// formatExt maps image.DecodeConfig format names to file extensions.
var formatExt = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// Sniff reports the image format of data ("jpeg", "png", "gif" or "webp").
// Anything that does not decode as one of those is rejected with
// domain.ErrValidation.
func Sniff(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: image is empty", domain.ErrValidation)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: file is not a supported image", domain.ErrValidation)
	}
	if _, ok := formatMIME[format]; !ok {
		return "", fmt.Errorf("%w: unsupported image format %q", domain.ErrValidation, format)
	}
	return format, nil
}

// MIMEType returns the content type for a format reported by Sniff.
func MIMEType(format string) string {
	return formatMIME[format]
}
