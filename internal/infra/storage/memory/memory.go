// Package memory provides an in-process HistoryRepository for tests and
// storage-less deployments.
package memory

import (
	"context"
	"sync"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/storage"
)

type HistoryRepo struct {
	mu      sync.RWMutex
	records []*domain.RecoveryHistoryRecord
}

func NewHistoryRepo() *HistoryRepo {
	return &HistoryRepo{}
}

// Append stores a copy of the record so callers can't mutate stored state.
func (r *HistoryRepo) Append(ctx context.Context, rec *domain.RecoveryHistoryRecord) error {
	cp := *rec
	cp.ActionsAttempted = append([]domain.RecoveryActionType(nil), rec.ActionsAttempted...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, &cp)
	return nil
}

// Query returns matching records, newest first.
func (r *HistoryRepo) Query(
	ctx context.Context,
	f storage.HistoryFilter,
) ([]*domain.RecoveryHistoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.RecoveryHistoryRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if f.TaskID != "" && rec.TaskID != f.TaskID {
			continue
		}
		if f.ErrorType != "" && rec.ErrorType != f.ErrorType {
			continue
		}
		if f.Success != nil && rec.Success != *f.Success {
			continue
		}
		cp := *rec
		cp.ActionsAttempted = append([]domain.RecoveryActionType(nil), rec.ActionsAttempted...)
		out = append(out, &cp)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// ActionSuccessCounts counts which actions closed out successful recoveries.
func (r *HistoryRepo) ActionSuccessCounts(
	ctx context.Context,
	errType domain.ErrorType,
) (map[domain.RecoveryActionType]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.RecoveryActionType]int)
	for _, rec := range r.records {
		if !rec.Success || rec.ErrorType != errType || rec.SucceededAction == "" {
			continue
		}
		counts[rec.SucceededAction]++
	}
	return counts, nil
}

// Len reports the number of stored records.
func (r *HistoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
