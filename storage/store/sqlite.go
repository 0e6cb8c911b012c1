package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	const op = "SQLiteStore.Init"
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.NewBadRequest(op, "sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.NewUnknown(op, "opening "+s.path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.NewUnknown(op, "connecting to "+s.path, err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.NewUnknown(op, "creating tables", err)
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, id string, file *storage.SurMlFile) error {
	const op = "SQLiteStore.Save"
	if err := validate(op, id, file); err != nil {
		return err
	}
	db, err := s.getDB(op)
	if err != nil {
		return err
	}

	payload := file.ToBytes()
	rec := recordOf(id, file, len(payload), time.Now().UTC())
	_, err = db.ExecContext(ctx, `
		INSERT INTO containers (id, name, version, size, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			size = excluded.size,
			updated_at = excluded.updated_at,
			payload = excluded.payload
	`, rec.ID, rec.Name, rec.Version, rec.Size, rec.UpdatedAt.UnixNano(), payload)
	if err != nil {
		return errors.NewUnknown(op, "writing container "+id, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*storage.SurMlFile, bool, error) {
	const op = "SQLiteStore.Get"
	db, err := s.getDB(op)
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM containers WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.NewUnknown(op, "reading container "+id, err)
	}

	file, err := storage.FromBytes(payload)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decode container %s", id)
	}
	return file, true, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	const op = "SQLiteStore.Delete"
	db, err := s.getDB(op)
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM containers WHERE id = ?`, id)
	if err != nil {
		return false, errors.NewUnknown(op, "deleting container "+id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewUnknown(op, "deleting container "+id, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	const op = "SQLiteStore.List"
	db, err := s.getDB(op)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name, version, size, updated_at FROM containers ORDER BY id`)
	if err != nil {
		return nil, errors.NewUnknown(op, "listing containers", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			updatedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Size, &updatedAt); err != nil {
			return nil, errors.NewUnknown(op, "scanning container row", err)
		}
		rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewUnknown(op, "listing containers", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB(op string) (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.NewUnknown(op, "store is not initialized", nil)
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS containers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			size INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
