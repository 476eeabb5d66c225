package cache

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used for unit tests and cache-less
// development runs. Mirrors Redis hash semantics.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.data[key]
	return ok && len(h) > 0, nil
}

func (s *MemoryStore) GetField(ctx context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.data[key]
	if !ok {
		return "", false, nil
	}
	v, ok := h[field]
	return v, ok, nil
}

func (s *MemoryStore) GetFields(ctx context.Context, key string, fields []string) ([]*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*string, len(fields))
	h, ok := s.data[key]
	if !ok {
		return out, nil
	}
	for i, f := range fields {
		if v, ok := h[f]; ok {
			vc := v
			out[i] = &vc
		}
	}
	return out, nil
}

func (s *MemoryStore) SetFields(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.data[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.data[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

func (s *MemoryStore) DeleteKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
