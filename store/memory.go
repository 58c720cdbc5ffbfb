package store

import (
	"context"
	"sync"
)

// MemoryStore keeps commands in process memory only.
type MemoryStore struct {
	mu   sync.RWMutex
	cmds snapshot
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) List(ctx context.Context) ([]Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cmds.clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, name string) (Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.cmds.index(NormalizeName(name)); i >= 0 {
		return s.cmds[i], nil
	}
	return Command{}, ErrNotFound
}

func (s *MemoryStore) Add(ctx context.Context, name, response string) (Command, error) {
	return s.apply(addMutation(name, response))
}

func (s *MemoryStore) Delete(ctx context.Context, name string) (string, error) {
	c, err := s.apply(deleteMutation(name))
	return c.Name, err
}

func (s *MemoryStore) Edit(ctx context.Context, name, response string) (Command, error) {
	return s.apply(editMutation(name, response))
}

func (s *MemoryStore) apply(m mutation) (Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, c, err := m(s.cmds)
	if err != nil {
		return Command{}, err
	}
	s.cmds = next
	return c, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
