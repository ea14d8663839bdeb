// Package storage keeps uploaded receipts behind opaque keys.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Storage is the receipt backend. Delete is idempotent: deleting a missing key succeeds.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Object, error)
}
