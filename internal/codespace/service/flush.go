package service

import (
	"context"

	"github.com/codespacehq/codespace-backend/internal/codespace"
	"github.com/codespacehq/codespace-backend/pkg/logger"
	"github.com/codespacehq/codespace-backend/pkg/metrics"
)

// Flush reconciles the codespace's cached live-field values into the durable
// store. It is the only path moving cache state back to the durable record.
//
// The cache key is left in place afterwards: reads keep preferring cached
// values, and if the durable update fails the cache still holds the source
// values so the flush can simply be retried.
func (s *Service) Flush(ctx context.Context, cs *codespace.Codespace) error {
	cached, err := s.cache.Exists(ctx, cs.UUID)
	if err != nil {
		metrics.Flushes.WithLabelValues("error").Inc()
		return err
	}
	if !cached {
		metrics.Flushes.WithLabelValues("no_changes").Inc()
		return codespace.ErrNoCachedChanges
	}

	fields := codespace.LiveFieldNames()
	// Single bulk read of all live fields. A concurrent write landing between
	// the individual field reads inside HMGET can yield values from different
	// logical points in time; accepted, the edit rate dwarfs the flush rate.
	vals, err := s.cache.GetFields(ctx, cs.UUID, fields)
	if err != nil {
		metrics.Flushes.WithLabelValues("error").Inc()
		return err
	}

	update := make(map[string]interface{}, len(fields))
	for i, f := range fields {
		if vals[i] == nil {
			// key exists but this field was never written; durable value stands
			continue
		}
		update[f] = *vals[i]
	}
	if len(update) == 0 {
		metrics.Flushes.WithLabelValues("no_changes").Inc()
		return codespace.ErrNoCachedChanges
	}

	if s.archiver != nil {
		if v, ok := update[codespace.FieldCode]; ok {
			if code, ok := v.(string); ok && code != cs.Code {
				if err := s.archiver.ArchiveSnapshot(ctx, cs.UUID, cs.Code); err != nil {
					logger.Warnf("snapshot archive failed for %s: %v", cs.UUID, err)
				}
			}
		}
	}

	if err := s.repo.Update(ctx, cs.UUID, update); err != nil {
		metrics.Flushes.WithLabelValues("error").Inc()
		return err
	}

	// assign the flushed values onto the in-memory model, bypassing the
	// cache-write path: they are durable-bound now
	for f, v := range update {
		code, _ := v.(string)
		if f == codespace.FieldCode {
			cs.Code = code
		}
	}
	metrics.Flushes.WithLabelValues("ok").Inc()
	return nil
}
