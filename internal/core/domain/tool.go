package domain

import "time"

// ToolExecutionResult reports the outcome of one executed tool call,
// including retry and fallback bookkeeping.
type ToolExecutionResult struct {
	ToolName          string           `json:"tool_name"`
	Success           bool             `json:"success"`
	Result            any              `json:"result,omitempty"`
	Error             string           `json:"error,omitempty"`
	AttemptCount      int              `json:"attempt_count"`
	WasRetried        bool             `json:"was_retried"`
	Cancelled         bool             `json:"cancelled,omitempty"`
	ExecutionDuration time.Duration    `json:"execution_duration"`
	Metadata          map[string]Value `json:"metadata,omitempty"`
}

// Metadata keys set by the fallback-chain runner.
const (
	MetaFallbackUsed  = "fallback_used"
	MetaFallbackIndex = "fallback_index"
	MetaPrimaryError  = "primary_error"
)
