package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/storage"
)

// HistoryRepo implements storage.HistoryRepository using PostgreSQL.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new PostgreSQL history repository.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

type historyRow struct {
	ID               string    `db:"id"`
	TaskID           string    `db:"task_id"`
	ErrorType        string    `db:"error_type"`
	ExceptionType    string    `db:"exception_type"`
	ActionsAttempted string    `db:"actions_attempted"`
	SucceededAction  string    `db:"succeeded_action"`
	Success          bool      `db:"success"`
	AttemptNumber    int       `db:"attempt_number"`
	DurationMs       int64     `db:"duration_ms"`
	CreatedAt        time.Time `db:"created_at"`
}

// Append persists one recovery record.
func (r *HistoryRepo) Append(ctx context.Context, rec *domain.RecoveryHistoryRecord) error {
	query := `
		INSERT INTO recovery_history
			(id, task_id, error_type, exception_type, actions_attempted, succeeded_action, success, attempt_number, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.TaskID,
		string(rec.ErrorType),
		rec.ExceptionType,
		joinActions(rec.ActionsAttempted),
		string(rec.SucceededAction),
		rec.Success,
		rec.AttemptNumber,
		rec.DurationMs,
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append recovery record: %w", err)
	}
	return nil
}

// Query returns records matching the filter, newest first.
func (r *HistoryRepo) Query(
	ctx context.Context,
	f storage.HistoryFilter,
) ([]*domain.RecoveryHistoryRecord, error) {
	query := `
		SELECT id, task_id, error_type, exception_type, actions_attempted, succeeded_action, success, attempt_number, duration_ms, created_at
		FROM recovery_history
		WHERE 1=1
	`
	var args []interface{}
	argn := 1

	if f.TaskID != "" {
		query += fmt.Sprintf(" AND task_id = $%d", argn)
		args = append(args, f.TaskID)
		argn++
	}
	if f.ErrorType != "" {
		query += fmt.Sprintf(" AND error_type = $%d", argn)
		args = append(args, string(f.ErrorType))
		argn++
	}
	if f.Success != nil {
		query += fmt.Sprintf(" AND success = $%d", argn)
		args = append(args, *f.Success)
		argn++
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argn)
		args = append(args, f.Limit)
	}

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query recovery history: %w", err)
	}

	out := make([]*domain.RecoveryHistoryRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToRecord(row))
	}
	return out, nil
}

// ActionSuccessCounts counts which actions closed out successful recoveries
// of the given error type.
func (r *HistoryRepo) ActionSuccessCounts(
	ctx context.Context,
	errType domain.ErrorType,
) (map[domain.RecoveryActionType]int, error) {
	query := `
		SELECT succeeded_action, COUNT(*) AS n
		FROM recovery_history
		WHERE error_type = $1 AND success = TRUE AND succeeded_action <> ''
		GROUP BY succeeded_action
	`

	var rows []struct {
		Action string `db:"succeeded_action"`
		N      int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, string(errType)); err != nil {
		return nil, fmt.Errorf("failed to count action successes: %w", err)
	}

	counts := make(map[domain.RecoveryActionType]int, len(rows))
	for _, row := range rows {
		counts[domain.RecoveryActionType(row.Action)] = row.N
	}
	return counts, nil
}

func rowToRecord(row historyRow) *domain.RecoveryHistoryRecord {
	return &domain.RecoveryHistoryRecord{
		ID:               row.ID,
		TaskID:           row.TaskID,
		ErrorType:        domain.ErrorType(row.ErrorType),
		ExceptionType:    row.ExceptionType,
		ActionsAttempted: splitActions(row.ActionsAttempted),
		SucceededAction:  domain.RecoveryActionType(row.SucceededAction),
		Success:          row.Success,
		AttemptNumber:    row.AttemptNumber,
		DurationMs:       row.DurationMs,
		Timestamp:        row.CreatedAt,
	}
}

func joinActions(actions []domain.RecoveryActionType) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

func splitActions(s string) []domain.RecoveryActionType {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]domain.RecoveryActionType, len(parts))
	for i, p := range parts {
		out[i] = domain.RecoveryActionType(p)
	}
	return out
}
