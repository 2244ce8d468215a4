// Package blob stores uploaded media and issues public URLs for it.
//
// Object keys are <wallID>/<uuid>.<ext>; a video's poster frame sits next to
// it as <wallID>/<uuid>-thumb.jpg.
package blob

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/memorywall/pkg/errors"
)

// DefaultBucket is the bucket the web client uploads to.
const DefaultBucket = "wall-uploads"

// Store writes objects and resolves their public URLs.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	PublicURL(key string) string
}

// NewKey returns a fresh object key for a file uploaded to wallID. The
// extension is taken from filename and lowercased.
func NewKey(wallID, filename string) (string, error) {
	if err := errors.ValidateID("wall", wallID); err != nil {
		return "", err
	}
	if err := errors.ValidateUploadFilename(filename); err != nil {
		return "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	return wallID + "/" + uuid.NewString() + "." + ext, nil
}

// ThumbKey returns the poster-frame key for a media key.
func ThumbKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + "-thumb.jpg"
}

// ContentType guesses a MIME type from the key's extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// IsVideo reports whether contentType is a video type.
func IsVideo(contentType string) bool {
	return strings.HasPrefix(contentType, "video/")
}
