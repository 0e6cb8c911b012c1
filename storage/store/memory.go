package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage"
)

type memoryEntry struct {
	payload []byte
	record  Record
}

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	containers  map[string]memoryEntry
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.containers = make(map[string]memoryEntry)
	return nil
}

func (s *MemoryStore) Save(_ context.Context, id string, file *storage.SurMlFile) error {
	const op = "MemoryStore.Save"
	if err := validate(op, id, file); err != nil {
		return err
	}
	payload := file.ToBytes()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.NewUnknown(op, "store is not initialized", nil)
	}
	s.containers[id] = memoryEntry{
		payload: payload,
		record:  recordOf(id, file, len(payload), s.now()),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*storage.SurMlFile, bool, error) {
	s.mu.RLock()
	entry, ok := s.containers[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	file, err := storage.FromBytes(entry.payload)
	if err != nil {
		return nil, false, err
	}
	return file, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.containers[id]
	delete(s.containers, id)
	return ok, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.containers))
	for _, entry := range s.containers {
		out = append(out, entry.record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
