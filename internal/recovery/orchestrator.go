// Package recovery implements the classify -> rank -> attempt loop that
// turns a failed automation step into a recovered one, learning from past
// outcomes which action to try first.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/storage"
	"github.com/vietddude/healer/internal/metrics"
	"github.com/vietddude/healer/internal/resilience/backoff"
	"github.com/vietddude/healer/internal/resilience/classify"
)

// ActionCache is the fast path for action-success counters. Implementations
// may lose data; the durable store remains the source of truth.
type ActionCache interface {
	RecordActionSuccess(
		ctx context.Context,
		errType domain.ErrorType,
		action domain.RecoveryActionType,
	) error
	ActionSuccessCounts(
		ctx context.Context,
		errType domain.ErrorType,
	) (map[domain.RecoveryActionType]int, error)
}

// Orchestrator coordinates failure classification, action ranking, and
// recovery attempts. Every Recover call writes exactly one history record.
type Orchestrator struct {
	store    storage.HistoryRepository
	cache    ActionCache // optional
	handlers map[domain.RecoveryActionType]ActionHandler
	policy   backoff.RetryPolicy
}

// NewOrchestrator creates an orchestrator with handlers wired from the
// given collaborators. cache may be nil.
func NewOrchestrator(
	store storage.HistoryRepository,
	cache ActionCache,
	collabs Collaborators,
	policy backoff.RetryPolicy,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		cache:    cache,
		handlers: defaultHandlers(collabs, policy),
		policy:   policy,
	}
}

// Recover runs the full recovery pipeline with the default policy.
func (o *Orchestrator) Recover(
	ctx context.Context,
	cause error,
	ectx *domain.ExecutionContext,
) domain.RecoveryResult {
	return o.RecoverWithPolicy(ctx, cause, ectx, o.policy)
}

// RecoverWithPolicy classifies the failure, ranks candidate actions by
// past success, and attempts them until one succeeds or the retry budget
// runs out. Handler errors are swallowed and treated as "try the next
// action"; only a non-recoverable classification or exhaustion surfaces
// the original error, wrapped in the result, never re-thrown.
func (o *Orchestrator) RecoverWithPolicy(
	ctx context.Context,
	cause error,
	ectx *domain.ExecutionContext,
	policy backoff.RetryPolicy,
) domain.RecoveryResult {
	start := time.Now()
	cls := classify.Classify(cause, ectx)

	rec := &domain.RecoveryHistoryRecord{
		ID:            uuid.NewString(),
		ErrorType:     cls.ErrorType,
		ExceptionType: fmt.Sprintf("%T", cause),
		Timestamp:     start,
	}
	if ectx != nil {
		rec.TaskID = ectx.TaskID
	}

	if !cls.IsRecoverable {
		rec.Success = false
		rec.AttemptNumber = 0
		o.finish(ctx, rec, start)
		return domain.RecoveryResult{
			Outcome:        domain.OutcomeNotRecoverable,
			ErrorType:      cls.ErrorType,
			Duration:       time.Since(start),
			Recommendation: "error is not recoverable; manual intervention required",
			FinalError:     cause,
		}
	}

	actions := o.SuggestActions(ctx, cls.ErrorType, ectx)
	slog.Debug("Attempting recovery",
		"error_type", cls.ErrorType,
		"actions", actions,
		"max_retries", policy.MaxRetries,
	)

	var attempted []domain.RecoveryActionType
	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		for _, action := range actions {
			handler, ok := o.handlers[action]
			if !ok || action == domain.ActionNone {
				continue
			}
			attempted = append(attempted, action)

			err := o.execute(ctx, handler, ectx, attempt)
			if ctxErr := ctx.Err(); ctxErr != nil {
				rec.Success = false
				rec.AttemptNumber = attempt
				rec.ActionsAttempted = attempted
				o.finish(ctx, rec, start)
				return domain.RecoveryResult{
					Outcome:          domain.OutcomeCancelled,
					ErrorType:        cls.ErrorType,
					ActionsAttempted: attempted,
					AttemptNumber:    attempt,
					Duration:         time.Since(start),
					FinalError:       ctxErr,
				}
			}
			if err == nil {
				rec.Success = true
				rec.AttemptNumber = attempt
				rec.ActionsAttempted = attempted
				rec.SucceededAction = action
				o.finish(ctx, rec, start)
				o.recordLearnedSuccess(ctx, cls.ErrorType, action)
				slog.Info("Recovery succeeded",
					"error_type", cls.ErrorType,
					"action", action,
					"attempt", attempt,
				)
				return domain.RecoveryResult{
					Success:          true,
					Outcome:          domain.OutcomeRecovered,
					ErrorType:        cls.ErrorType,
					ActionsAttempted: attempted,
					AttemptNumber:    attempt,
					Duration:         time.Since(start),
				}
			}
			slog.Debug("Recovery action failed", "action", action, "error", err)
		}
	}

	rec.Success = false
	rec.AttemptNumber = policy.MaxRetries
	rec.ActionsAttempted = attempted
	o.finish(ctx, rec, start)
	slog.Warn("Recovery exhausted",
		"error_type", cls.ErrorType,
		"actions_attempted", attempted,
	)
	return domain.RecoveryResult{
		Outcome:          domain.OutcomeExhausted,
		ErrorType:        cls.ErrorType,
		ActionsAttempted: attempted,
		AttemptNumber:    policy.MaxRetries,
		Duration:         time.Since(start),
		Recommendation:   "all recovery actions exhausted; escalate to operator",
		FinalError:       cause,
	}
}

// SuggestActions returns the classifier's base action list for errType,
// re-ranked by history: the action with the most recorded successes moves
// to the front, remaining actions keep their relative order, deduplicated.
func (o *Orchestrator) SuggestActions(
	ctx context.Context,
	errType domain.ErrorType,
	_ *domain.ExecutionContext,
) []domain.RecoveryActionType {
	base := classify.BaseActions(errType)

	counts := o.successCounts(ctx, errType)
	if len(counts) == 0 {
		return base
	}

	best := bestAction(counts, base)
	if best == "" {
		return base
	}

	out := make([]domain.RecoveryActionType, 0, len(base)+1)
	out = append(out, best)
	for _, a := range base {
		if a != best {
			out = append(out, a)
		}
	}
	return out
}

// Statistics aggregates history records for a task (or all tasks when
// taskID is empty).
func (o *Orchestrator) Statistics(ctx context.Context, taskID string) (domain.RecoveryStats, error) {
	records, err := o.store.Query(ctx, storage.HistoryFilter{TaskID: taskID})
	if err != nil {
		return domain.RecoveryStats{}, fmt.Errorf("failed to query history: %w", err)
	}

	stats := domain.RecoveryStats{
		ByErrorType: make(map[domain.ErrorType]int),
	}
	var totalMs int64
	for _, rec := range records {
		stats.Total++
		if rec.Success {
			stats.Successful++
		}
		totalMs += rec.DurationMs
		stats.ByErrorType[rec.ErrorType]++
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total)
		stats.AverageDurationMs = float64(totalMs) / float64(stats.Total)
	}
	return stats, nil
}

// execute runs one handler, converting panics into plain errors so a buggy
// collaborator can't take down the recovery loop.
func (o *Orchestrator) execute(
	ctx context.Context,
	handler ActionHandler,
	ectx *domain.ExecutionContext,
	attempt int,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovery handler panicked: %v", r)
		}
	}()
	return handler.Execute(ctx, ectx, attempt)
}

// finish writes the single history record for this invocation and emits
// metrics. Store failures are logged, not surfaced: recovery outcome must
// not depend on bookkeeping health.
func (o *Orchestrator) finish(ctx context.Context, rec *domain.RecoveryHistoryRecord, start time.Time) {
	rec.DurationMs = time.Since(start).Milliseconds()

	outcome := "failed"
	if rec.Success {
		outcome = "recovered"
	} else if rec.AttemptNumber == 0 {
		outcome = "not_recoverable"
	}
	metrics.RecoveriesTotal.WithLabelValues(string(rec.ErrorType), outcome).Inc()
	metrics.RecoveryDuration.WithLabelValues(string(rec.ErrorType)).
		Observe(time.Since(start).Seconds())

	// Use a detached context so a cancelled recovery still writes its record.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.store.Append(writeCtx, rec); err != nil {
		slog.Error("Failed to append recovery record", "error", err, "record_id", rec.ID)
	}
}

func (o *Orchestrator) recordLearnedSuccess(
	ctx context.Context,
	errType domain.ErrorType,
	action domain.RecoveryActionType,
) {
	if o.cache == nil {
		return
	}
	if err := o.cache.RecordActionSuccess(ctx, errType, action); err != nil {
		slog.Debug("Failed to update action cache", "error", err)
	}
}

// successCounts prefers the cache and falls back to the durable store.
func (o *Orchestrator) successCounts(
	ctx context.Context,
	errType domain.ErrorType,
) map[domain.RecoveryActionType]int {
	if o.cache != nil {
		counts, err := o.cache.ActionSuccessCounts(ctx, errType)
		if err == nil && len(counts) > 0 {
			return counts
		}
	}
	counts, err := o.store.ActionSuccessCounts(ctx, errType)
	if err != nil {
		slog.Debug("Failed to load action success counts", "error", err)
		return nil
	}
	return counts
}

// bestAction picks the highest-count action, breaking ties by base order so
// ranking stays deterministic.
func bestAction(
	counts map[domain.RecoveryActionType]int,
	base []domain.RecoveryActionType,
) domain.RecoveryActionType {
	var best domain.RecoveryActionType
	bestCount := 0

	consider := func(a domain.RecoveryActionType) {
		if n := counts[a]; n > bestCount {
			best = a
			bestCount = n
		}
	}
	for _, a := range base {
		consider(a)
	}

	// Learned actions outside the base table can still win, e.g. after the
	// action tables change between versions. Sorted for determinism.
	extra := make([]string, 0, len(counts))
	for a := range counts {
		extra = append(extra, string(a))
	}
	sort.Strings(extra)
	for _, a := range extra {
		consider(domain.RecoveryActionType(a))
	}
	return best
}
