package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/codespacehq/codespace-backend/internal/cache"
	"github.com/codespacehq/codespace-backend/internal/codespace"
	"github.com/codespacehq/codespace-backend/internal/codespace/repository"
	"github.com/codespacehq/codespace-backend/pkg/logger"
	"github.com/codespacehq/codespace-backend/pkg/metrics"
)

// SnapshotArchiver stores a copy of a codespace's durable code before a flush
// overwrites it. Optional; archiving failures never fail the flush.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, uuid, code string) error
}

// OnLoadFunc is an observer invoked synchronously after a codespace is loaded
// from the durable store, before Get returns. Observer failures (including
// panics) never fail the load.
type OnLoadFunc func(cs *codespace.Codespace)

// Service implements the dual-tier codespace semantics: the durable store is
// authoritative, live fields diverge into the cache on write and are read
// cache-first, and an explicit Flush reconciles the two. Ephemeral (tmp)
// codespaces live entirely in the cache.
type Service struct {
	repo     repository.Repository
	cache    cache.Store
	archiver SnapshotArchiver

	mu     sync.RWMutex
	onLoad []OnLoadFunc
}

func New(repo repository.Repository, cacheStore cache.Store) *Service {
	return &Service{repo: repo, cache: cacheStore}
}

// SetArchiver configures optional pre-flush snapshot archiving.
func (s *Service) SetArchiver(a SnapshotArchiver) { s.archiver = a }

// OnLoad registers an observer fired on every durable load.
func (s *Service) OnLoad(fn OnLoadFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLoad = append(s.onLoad, fn)
}

func (s *Service) fireOnLoad(cs *codespace.Codespace) {
	s.mu.RLock()
	observers := s.onLoad
	s.mu.RUnlock()
	for _, fn := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warnf("on-load observer panicked for %s: %v", cs.UUID, r)
				}
			}()
			fn(cs)
		}()
	}
}

// Create inserts a new durable codespace with all fields, live ones included.
// The cache is not touched: a fresh codespace reads its live fields straight
// from the durable record until the first cache write. nil name/code select
// the generated defaults; an explicit empty code stays empty.
func (s *Service) Create(ctx context.Context, createdBy string, name, code *string) (*codespace.Codespace, error) {
	cs := &codespace.Codespace{
		UUID:      codespace.NewUUID(),
		Name:      codespace.DefaultName,
		Code:      codespace.DefaultCode,
		CreatedBy: createdBy,
	}
	if name != nil && *name != "" {
		cs.Name = *name
	}
	if code != nil {
		cs.Code = *code
	}
	if err := s.repo.Create(ctx, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Get loads a codespace from the durable store and fires on-load observers.
func (s *Service) Get(ctx context.Context, uuid string) (*codespace.Codespace, error) {
	cs, err := s.repo.Get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	s.fireOnLoad(cs)
	return cs, nil
}

// ListByOwner returns the codespaces created by the given principal, newest
// first. Live fields in the result reflect the durable snapshot only.
func (s *Service) ListByOwner(ctx context.Context, createdBy string) ([]*codespace.Codespace, error) {
	return s.repo.ListByOwner(ctx, createdBy)
}

// ReadField returns the current value of a field. Live fields are read
// cache-first: a cached value overrides the durable one, but the durable
// snapshot carried by cs stays authoritative until the cache holds the field.
func (s *Service) ReadField(ctx context.Context, cs *codespace.Codespace, field string) (string, error) {
	durable, err := durableFieldValue(cs, field)
	if err != nil {
		return "", err
	}
	if !codespace.IsLiveField(field) {
		return durable, nil
	}
	exists, err := s.cache.Exists(ctx, cs.UUID)
	if err != nil {
		return "", err
	}
	if exists {
		if v, found, err := s.cache.GetField(ctx, cs.UUID, field); err != nil {
			return "", err
		} else if found {
			metrics.CacheReads.WithLabelValues("hit").Inc()
			return v, nil
		}
	}
	metrics.CacheReads.WithLabelValues("miss").Inc()
	return durable, nil
}

// WriteField routes a field write. Live fields land in the cache only; the
// durable record is untouched until Flush. Mutable non-live fields go
// straight to the durable store. Identity and timestamp fields are fixed.
func (s *Service) WriteField(ctx context.Context, uuid, field, value string) error {
	switch field {
	case codespace.FieldUUID, codespace.FieldCreatedBy, codespace.FieldCreatedAt:
		return codespace.ErrImmutableField
	}
	if codespace.IsLiveField(field) {
		return s.cache.SetFields(ctx, uuid, map[string]string{field: value})
	}
	if field != codespace.FieldName {
		return codespace.ErrUnknownField
	}
	return s.repo.Update(ctx, uuid, map[string]interface{}{field: value})
}

// IsCached reports whether any live field of the codespace has diverged into
// the cache since creation (or since the key was last deleted).
func (s *Service) IsCached(ctx context.Context, uuid string) (bool, error) {
	return s.cache.Exists(ctx, uuid)
}

// Delete removes the durable record and clears the now-orphaned cache entry.
func (s *Service) Delete(ctx context.Context, uuid string) error {
	if err := s.repo.Delete(ctx, uuid); err != nil {
		return err
	}
	if err := s.cache.DeleteKey(ctx, uuid); err != nil {
		// durable row is already gone; the orphan will be overwritten or can
		// be cleared by a retry, so don't fail the delete
		logger.Warnf("failed to clear cache entry for deleted codespace %s: %v", uuid, err)
	}
	return nil
}

func durableFieldValue(cs *codespace.Codespace, field string) (string, error) {
	switch field {
	case codespace.FieldUUID:
		return cs.UUID, nil
	case codespace.FieldName:
		return cs.Name, nil
	case codespace.FieldCode:
		return cs.Code, nil
	case codespace.FieldCreatedBy:
		return cs.CreatedBy, nil
	case codespace.FieldCreatedAt:
		return strconv.FormatInt(cs.CreatedAt.Unix(), 10), nil
	default:
		return "", codespace.ErrUnknownField
	}
}

// CreateTmp saves a new ephemeral codespace to the cache in one step. The
// whole field set is written under the tmp-prefixed identifier; timestamps
// are stored as decimal strings per the cache wire contract.
func (s *Service) CreateTmp(ctx context.Context, code *string) (*codespace.TmpCodespace, error) {
	tc := codespace.NewTmpCodespace("", code)
	if err := s.saveTmp(ctx, tc); err != nil {
		return nil, err
	}
	metrics.TmpCodespaces.WithLabelValues("create").Inc()
	return tc, nil
}

// SaveTmp overwrites the cached field set of an existing ephemeral codespace.
func (s *Service) SaveTmp(ctx context.Context, tc *codespace.TmpCodespace) error {
	return s.saveTmp(ctx, tc)
}

func (s *Service) saveTmp(ctx context.Context, tc *codespace.TmpCodespace) error {
	return s.cache.SetFields(ctx, tc.UUID, map[string]string{
		codespace.FieldUUID:      tc.UUID,
		codespace.FieldCode:      tc.Code(),
		codespace.FieldCreatedAt: strconv.FormatInt(tc.CreatedAt.Unix(), 10),
	})
}

// GetTmp hydrates an ephemeral codespace from the cache. Returns
// codespace.ErrDoesNotExist when the key is absent.
func (s *Service) GetTmp(ctx context.Context, uuid string) (*codespace.TmpCodespace, error) {
	exists, err := s.cache.Exists(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, codespace.ErrDoesNotExist
	}
	vals, err := s.cache.GetFields(ctx, uuid, []string{codespace.FieldCode, codespace.FieldCreatedAt})
	if err != nil {
		return nil, err
	}
	tc := codespace.NewTmpCodespace(uuid, vals[0])
	if vals[1] != nil {
		if ts, err := strconv.ParseInt(*vals[1], 10, 64); err == nil {
			tc.CreatedAt = time.Unix(ts, 0).UTC()
		}
	}
	return tc, nil
}

// DeleteTmp removes the ephemeral codespace's cache entry.
func (s *Service) DeleteTmp(ctx context.Context, uuid string) error {
	if err := s.cache.DeleteKey(ctx, uuid); err != nil {
		return err
	}
	metrics.TmpCodespaces.WithLabelValues("delete").Inc()
	return nil
}
