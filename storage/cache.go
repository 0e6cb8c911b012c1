package storage

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/surrealdb/surrealml/pkg/errors"
)

// DefaultCacheDir is where containers under construction are parked.
const DefaultCacheDir = ".surmlcache"

const cacheExt = ".surml"

// CacheOption configures a FileCache.
type CacheOption func(*FileCache)

// WithCacheDir sets the directory used by the cache.
func WithCacheDir(dir string) CacheOption {
	return func(c *FileCache) {
		c.dir = dir
	}
}

// FileCache stores containers on disk keyed by a UUID while they are being
// assembled, so the caller only has to carry an id between steps.
type FileCache struct {
	dir string
}

// NewFileCache returns a cache rooted at DefaultCacheDir unless configured otherwise.
func NewFileCache(opts ...CacheOption) *FileCache {
	c := &FileCache{dir: DefaultCacheDir}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) path(id string) string {
	return filepath.Join(c.dir, id+cacheExt)
}

func (c *FileCache) establish() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.NewUnknown("FileCache.establish", "creating cache directory "+c.dir, err)
	}
	return nil
}

// Create writes file under a fresh id and returns the id.
func (c *FileCache) Create(file *SurMlFile) (string, error) {
	id := uuid.NewString()
	if err := c.Save(file, id); err != nil {
		return "", err
	}
	return id, nil
}

// Save writes file under id, replacing any previous content.
func (c *FileCache) Save(file *SurMlFile, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := c.establish(); err != nil {
		return err
	}
	return file.Write(c.path(id))
}

// Get loads the container stored under id. Unknown ids are NotFound.
func (c *FileCache) Get(id string) (*SurMlFile, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return FromFile(c.path(id))
}

// Delete removes the container stored under id. Unknown ids are NotFound.
func (c *FileCache) Delete(id string) error {
	const op = "FileCache.Delete"
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(c.path(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.Classify(errors.NotFound, op, "cached container "+id, err)
		}
		return errors.NewUnknown(op, "removing cached container "+id, err)
	}
	return nil
}

// Wipe removes the whole cache directory. A missing directory is not an error.
func (c *FileCache) Wipe() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return errors.NewUnknown("FileCache.Wipe", "removing "+c.dir, err)
	}
	return nil
}

// validateID keeps ids from escaping the cache directory.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.Classify(errors.BadRequest, "FileCache", "invalid cache id "+id, err)
	}
	return nil
}
