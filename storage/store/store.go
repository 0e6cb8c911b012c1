// Package store persists encoded containers under caller-chosen ids.
// Containers are stored in their wire form so every backend round-trips
// them byte for byte.
package store

import (
	"context"
	"time"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage"
)

// Record describes a stored container without decoding its model bytes.
type Record struct {
	ID        string
	Name      string
	Version   string
	Size      int
	UpdatedAt time.Time
}

// Store defines persistence operations for containers.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, id string, file *storage.SurMlFile) error
	Get(ctx context.Context, id string) (*storage.SurMlFile, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Record, error)
}

// NewStore returns the backend named by kind: "memory" (default) or "sqlite".
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, errors.NewBadRequest("store.NewStore", "unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes backends that hold resources.
func CloseIfSupported(s Store) error {
	closer, ok := s.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

func recordOf(id string, file *storage.SurMlFile, size int, at time.Time) Record {
	return Record{
		ID:        id,
		Name:      file.Header.Name.String(),
		Version:   file.Header.Version.String(),
		Size:      size,
		UpdatedAt: at,
	}
}

func validate(op, id string, file *storage.SurMlFile) error {
	if id == "" {
		return errors.NewBadRequest(op, "container id is required")
	}
	if file == nil || file.Header == nil {
		return errors.NewBadRequest(op, "container %s has no header", id)
	}
	return nil
}
