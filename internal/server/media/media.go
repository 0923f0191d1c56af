// Package media uploads and removes the images attached to posts and
// profiles. Images arrive inline as data URLs or bare base64 and are kept on
// an S3-compatible asset host.
package media

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/threads/internal/common"
)

// Store is the asset host. Upload returns the public URL of the stored
// image; Destroy removes an image previously returned by Upload.
type Store interface {
	Upload(ctx context.Context, payload string) (string, error)
	Destroy(ctx context.Context, url string) error
}

var extensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"image/bmp":     "bmp",
}

// decodePayload returns the raw image bytes, its content type and a file
// extension.
func decodePayload(payload string) ([]byte, string, string, error) {
	payload = strings.TrimSpace(payload)
	contentType := ""

	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", "", common.Errorf(common.ErrInvalidRequest, "Invalid image")
		}
		contentType = strings.TrimSuffix(meta, ";base64")
		payload = data
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", "", common.Errorf(common.ErrInvalidRequest, "Invalid image")
	}
	if len(raw) == 0 {
		return nil, "", "", common.Errorf(common.ErrInvalidRequest, "Invalid image")
	}

	if contentType == "" {
		contentType = http.DetectContentType(raw)
	}
	ext, ok := extensions[contentType]
	if !ok {
		return nil, "", "", common.Errorf(common.ErrInvalidRequest, "Unsupported image type")
	}
	return raw, contentType, ext, nil
}
