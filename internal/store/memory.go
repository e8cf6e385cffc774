package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"mythforge/internal/entity"
)

// Memory is an in-process Store used by tests and by the CLI when no
// database path is configured.
type Memory struct {
	mu       sync.RWMutex
	entities map[entity.Kind]map[string]entity.Entity
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entities: make(map[entity.Kind]map[string]entity.Entity)}
}

func (m *Memory) Load(_ context.Context, kind entity.Kind, id string) (entity.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

func (m *Memory) Save(_ context.Context, kind entity.Kind, e entity.Entity) (string, error) {
	id, _ := e.GetString("id")
	if id == "" {
		id = uuid.NewString()
	}

	stored := e.Clone()
	stored.Set("id", id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entities[kind] == nil {
		m.entities[kind] = make(map[string]entity.Entity)
	}
	m.entities[kind][id] = stored
	return id, nil
}

func (m *Memory) Delete(_ context.Context, kind entity.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entities[kind], id)
	return nil
}

func (m *Memory) List(_ context.Context, kind entity.Kind) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.entities[kind]))
	for id := range m.entities[kind] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Close() error { return nil }
