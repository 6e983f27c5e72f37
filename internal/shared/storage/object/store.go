package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a storage key does not resolve to an object.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving, reading and removing uploaded files.
type ObjectStore interface {
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// SaveWithKey writes derived artifacts, such as extracted text, under a caller-chosen key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Delete(ctx context.Context, storageKey string) error
}
