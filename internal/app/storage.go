package app

import (
	"context"
	"errors"
)

// ErrStorageNotConfigured is returned when an upload operation is
// attempted without an object store wired in.
var ErrStorageNotConfigured = errors.New("object storage not configured")

// ObjectStore persists uploaded binary objects (workspace logos, user
// avatars) and returns a publicly servable URL for each stored object.
// Implemented by the S3 store adapter.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}

// imageExtension maps an uploaded image content type to a file
// extension. Unknown types are rejected at the service layer.
func imageExtension(contentType string) (string, bool) {
	switch contentType {
	case "image/png":
		return "png", true
	case "image/jpeg":
		return "jpg", true
	case "image/webp":
		return "webp", true
	case "image/gif":
		return "gif", true
	default:
		return "", false
	}
}
