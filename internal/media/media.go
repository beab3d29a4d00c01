package media

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrNotConfigured is returned when no media backend is configured.
var ErrNotConfigured = errors.New("media uploads are not configured")

// Uploader stores binary assets on an external media host and returns a
// public URL. Clients submit images as data URLs; the services decode and
// hand the raw bytes here.
type Uploader interface {
	UploadImage(ctx context.Context, data []byte, contentType string) (string, error)
}

// Disabled is an Uploader that rejects every upload. Used when the media
// backend is not configured.
type Disabled struct{}

func (Disabled) UploadImage(context.Context, []byte, string) (string, error) {
	return "", ErrNotConfigured
}

// ParseDataURL decodes a "data:<mediatype>;base64,<payload>" string into
// raw bytes and a content type.
func ParseDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("malformed data URL")
	}
	contentType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return nil, "", errors.New("unsupported data URL encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}
