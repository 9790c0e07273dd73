package media

import (
	"context"
	"errors"
	"time"
)

const (
	StorageObject = "object"
	StorageLocal  = "local"
)

var (
	ErrNotOwned      = errors.New("url not owned by this store")
	ErrNoObjectStore = errors.New("object storage not configured")
	ErrInvalidKey    = errors.New("invalid object key")
)

// Stored describes an uploaded object.
type Stored struct {
	URL     string
	Key     string
	Storage string
}

// Backend is a single place images can be written to.
type Backend interface {
	Name() string
	Put(ctx context.Context, key, contentType string, data []byte) (Stored, error)
	Delete(ctx context.Context, key string) error
	// KeyFor maps a public URL back to the object key, or reports false when
	// the URL was not issued by this backend.
	KeyFor(url string) (string, bool)
}

type Bucket struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
