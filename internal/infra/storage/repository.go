package storage

import (
	"context"

	"github.com/vietddude/healer/internal/core/domain"
)

// HistoryFilter narrows a history query. Zero-value fields are ignored.
type HistoryFilter struct {
	TaskID    string
	ErrorType domain.ErrorType
	Success   *bool
	Limit     int
}

// HistoryRepository is the durable, append-only store of recovery outcomes.
// Implementations provide their own concurrency safety.
type HistoryRepository interface {
	// Append persists one record. Records are never updated or deleted.
	Append(ctx context.Context, rec *domain.RecoveryHistoryRecord) error

	// Query returns records matching the filter, newest first.
	Query(ctx context.Context, f HistoryFilter) ([]*domain.RecoveryHistoryRecord, error)

	// ActionSuccessCounts returns, per action, how many successful recoveries
	// of the given error type that action closed out. Drives action ranking.
	ActionSuccessCounts(
		ctx context.Context,
		errType domain.ErrorType,
	) (map[domain.RecoveryActionType]int, error)
}
