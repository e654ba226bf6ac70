package domain

import "time"

// RecoveryOutcome is the terminal state of a recover invocation.
type RecoveryOutcome string

const (
	OutcomeRecovered      RecoveryOutcome = "recovered"
	OutcomeNotRecoverable RecoveryOutcome = "not_recoverable"
	OutcomeExhausted      RecoveryOutcome = "exhausted"
	OutcomeCancelled      RecoveryOutcome = "cancelled"
)

// RecoveryResult reports what the orchestrator did about a failure.
// Failures are returned as data; the original error is carried, not re-thrown.
type RecoveryResult struct {
	Success          bool                 `json:"success"`
	Outcome          RecoveryOutcome      `json:"outcome"`
	ErrorType        ErrorType            `json:"error_type"`
	ActionsAttempted []RecoveryActionType `json:"actions_attempted"`
	AttemptNumber    int                  `json:"attempt_number"`
	Duration         time.Duration        `json:"duration"`
	Recommendation   string               `json:"recommendation,omitempty"`
	FinalError       error                `json:"-"`
}

// RecoveryHistoryRecord is the durable, append-only record of one recover
// invocation. Exactly one record is written per invocation regardless of
// outcome; records are never updated or deleted.
type RecoveryHistoryRecord struct {
	ID               string               `json:"id"`
	TaskID           string               `json:"task_id,omitempty"`
	ErrorType        ErrorType            `json:"error_type"`
	ExceptionType    string               `json:"exception_type"`
	ActionsAttempted []RecoveryActionType `json:"actions_attempted"`
	SucceededAction  RecoveryActionType   `json:"succeeded_action,omitempty"`
	Success          bool                 `json:"success"`
	AttemptNumber    int                  `json:"attempt_number"`
	DurationMs       int64                `json:"duration_ms"`
	Timestamp        time.Time            `json:"timestamp"`
}

// RecoveryStats aggregates history records for reporting.
type RecoveryStats struct {
	Total             int               `json:"total"`
	Successful        int               `json:"successful"`
	SuccessRate       float64           `json:"success_rate"`
	AverageDurationMs float64           `json:"average_duration_ms"`
	ByErrorType       map[ErrorType]int `json:"by_error_type"`
}
