package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/codespacehq/codespace-backend/internal/codespace"
)

var (
	ErrNotFound = errors.New("codespace not found")
)

// Repository defines durable persistence operations for codespaces. The
// durable store is the source of truth for non-live fields and for the live
// fields' initial values.
type Repository interface {
	Create(ctx context.Context, cs *codespace.Codespace) error
	Get(ctx context.Context, uuid string) (*codespace.Codespace, error)
	ListByOwner(ctx context.Context, createdBy string) ([]*codespace.Codespace, error)
	Update(ctx context.Context, uuid string, fields map[string]interface{}) error
	Delete(ctx context.Context, uuid string) error
}

// MemoryRepo is a simple in-memory repository used for unit tests and for
// running the service without a MongoDB instance.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*codespace.Codespace
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*codespace.Codespace)}
}

func (m *MemoryRepo) Create(ctx context.Context, cs *codespace.Codespace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cs.UUID == "" {
		cs.UUID = codespace.NewUUID()
	}
	now := time.Now().UTC()
	cs.CreatedAt = now
	cs.UpdatedAt = now
	cp := *cs
	m.store[cs.UUID] = &cp
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, uuid string) (*codespace.Codespace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cs, ok := m.store[uuid]; ok {
		cp := *cs
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) ListByOwner(ctx context.Context, createdBy string) ([]*codespace.Codespace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*codespace.Codespace{}
	for _, cs := range m.store {
		if cs.CreatedBy == createdBy {
			cp := *cs
			out = append(out, &cp)
		}
	}
	// newest first, matching the Mongo repo's sort
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) Update(ctx context.Context, uuid string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.store[uuid]
	if !ok {
		return ErrNotFound
	}
	for f, v := range fields {
		switch f {
		case codespace.FieldName:
			if s, ok := v.(string); ok {
				cs.Name = s
			}
		case codespace.FieldCode:
			if s, ok := v.(string); ok {
				cs.Code = s
			}
		}
	}
	cs.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepo) Delete(ctx context.Context, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[uuid]; !ok {
		return ErrNotFound
	}
	delete(m.store, uuid)
	return nil
}
