package storage

import (
	"context"
	"errors"
	"io"
	"sync"
)

// CleanupError reports a partial object that could not be removed after a
// failed save. Hold joins it to the save error, which stays the primary cause.
type CleanupError struct {
	Key string
	Err error
}

func (e *CleanupError) Error() string { return "discard " + e.Key + ": " + e.Err.Error() }
func (e *CleanupError) Unwrap() error { return e.Err }

// Held is a stored object owned by one operation. Release deletes it unless
// Commit was called, so deferring Release covers every exit path.
type Held struct {
	store Storage
	key   string
	size  int64

	mu        sync.Mutex
	committed bool
	released  bool
}

// Hold saves r under key. When the save fails any partial object is deleted
// before the error is returned; a failed delete is joined as a *CleanupError.
func Hold(ctx context.Context, s Storage, key string, r io.Reader) (*Held, error) {
	n, err := s.Save(ctx, key, r)
	if err != nil {
		if delErr := s.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			return nil, errors.Join(err, &CleanupError{Key: key, Err: delErr})
		}
		return nil, err
	}
	return &Held{store: s, key: key, size: n}, nil
}

func (h *Held) Key() string { return h.key }
func (h *Held) Size() int64 { return h.size }

func (h *Held) Open(ctx context.Context) (io.ReadCloser, error) {
	return h.store.Open(ctx, h.key)
}

// Commit hands ownership of the object to whatever record now references it.
func (h *Held) Commit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.committed = true
}

func (h *Held) Release(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.committed || h.released {
		return nil
	}
	h.released = true
	return h.store.Delete(context.WithoutCancel(ctx), h.key)
}
