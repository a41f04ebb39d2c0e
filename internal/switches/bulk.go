package switches

import (
	"context"
	"sync"
	"time"

	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/switchspec"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	opBulkImport = "switches.bulk_import"

	maxBulkItems         = 500
	maxConcurrentBulkOps = 3
	subBatchSize         = 25
	largeBatchThreshold  = 1000
	interBatchDelay      = 200 * time.Millisecond
)

// BulkItem is one switch payload inside a bulk import request.
type BulkItem struct {
	Fields        switchspec.Fields
	PersonalNotes string
	Quantity      int
}

// BulkItemError pins a failure to its position in the request.
type BulkItemError struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BulkResult summarizes a bulk import. Succeeded+Failed always equals the
// number of submitted items.
type BulkResult struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Errors    []BulkItemError `json:"errors,omitempty"`
}

// BulkImport ingests up to maxBulkItems switches with per-item error
// isolation: a bad row is reported, never aborts the batch. Items are
// processed in fixed-size sub-batches whose members run concurrently. There is
// no transaction across the batch, so rows inserted before a crash stay
// inserted.
func (s *Service) BulkImport(ctx context.Context, userID string, items []BulkItem) (BulkResult, error) {
	if len(items) == 0 {
		return BulkResult{}, apperr.Validation(opBulkImport, "empty_batch", nil)
	}
	if len(items) > maxBulkItems {
		return BulkResult{}, apperr.Validation(opBulkImport, "batch_too_large", nil)
	}

	if !s.bulkGuard.Acquire(userID) {
		return BulkResult{}, apperr.Capacity(opBulkImport, "too_many_concurrent_imports", nil)
	}
	defer s.bulkGuard.Release(userID)

	total, err := s.CountForUser(ctx, userID)
	if err != nil {
		s.logError(opBulkImport, "count_failed", err, zap.String("user_id", userID))
		return BulkResult{}, apperr.Internal(opBulkImport, "count_failed", err)
	}
	if total+int64(len(items)) > maxSwitchesPerUser {
		return BulkResult{}, apperr.Capacity(opBulkImport, "collection_limit_exceeded", nil)
	}

	var (
		mu     sync.Mutex
		result BulkResult
	)
	recordFailure := func(index int, name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Failed++
		result.Errors = append(result.Errors, BulkItemError{Index: index, Name: name, Error: err.Error()})
	}
	recordSuccess := func() {
		mu.Lock()
		defer mu.Unlock()
		result.Succeeded++
	}

	throttle := len(items) > largeBatchThreshold
	for start := 0; start < len(items); start += subBatchSize {
		end := start + subBatchSize
		if end > len(items) {
			end = len(items)
		}

		group, groupCtx := errgroup.WithContext(ctx)
		for offset, item := range items[start:end] {
			index := start + offset
			group.Go(func() error {
				record, err := s.buildSwitch(groupCtx, userID, CreateRequest{
					Fields:        item.Fields,
					PersonalNotes: item.PersonalNotes,
					Quantity:      item.Quantity,
				})
				if err != nil {
					recordFailure(index, item.Fields.Name, err)
					return nil
				}
				if err := s.db.WithContext(groupCtx).Create(&record).Error; err != nil {
					recordFailure(index, item.Fields.Name, err)
					return nil
				}
				recordSuccess()
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			s.logError(opBulkImport, "sub_batch_failed", err, zap.String("user_id", userID))
			return result, apperr.Internal(opBulkImport, "sub_batch_failed", err)
		}

		if throttle && end < len(items) {
			select {
			case <-ctx.Done():
				return result, apperr.Internal(opBulkImport, "cancelled", ctx.Err())
			case <-time.After(interBatchDelay):
			}
		}
	}

	s.logger.Info("bulk import finished",
		zap.String("user_id", userID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result, nil
}
