package domain

// ErrorType categorizes a failure observed during automation or a backend call.
type ErrorType string

const (
	ErrorTypeSelectorNotFound       ErrorType = "selector_not_found"
	ErrorTypeNavigationTimeout      ErrorType = "navigation_timeout"
	ErrorTypeElementNotInteractable ErrorType = "element_not_interactable"
	ErrorTypeNetworkError           ErrorType = "network_error"
	ErrorTypePageCrash              ErrorType = "page_crash"
	ErrorTypeJavaScriptError        ErrorType = "javascript_error"
	ErrorTypePermissionDenied       ErrorType = "permission_denied"
	ErrorTypeTransient              ErrorType = "transient"
	ErrorTypeTimingIssue            ErrorType = "timing_issue"
	ErrorTypeUnknown                ErrorType = "unknown"
)

// RecoveryActionType identifies a remediation an error type may respond to.
type RecoveryActionType string

const (
	ActionNone                RecoveryActionType = "none"
	ActionWaitAndRetry        RecoveryActionType = "wait_and_retry"
	ActionAlternativeSelector RecoveryActionType = "alternative_selector"
	ActionWaitForStability    RecoveryActionType = "wait_for_stability"
	ActionPageRefresh         RecoveryActionType = "page_refresh"
	ActionNavigationRetry     RecoveryActionType = "navigation_retry"
	ActionClearCookies        RecoveryActionType = "clear_cookies"
)

// ErrorClassification is the result of classifying a failure.
// It is created fresh per classification and never mutated after return.
type ErrorClassification struct {
	ErrorType        ErrorType            `json:"error_type"`
	Confidence       float64              `json:"confidence"`
	IsRecoverable    bool                 `json:"is_recoverable"`
	SuggestedActions []RecoveryActionType `json:"suggested_actions"`
	Message          string               `json:"message"`
	Context          map[string]string    `json:"context,omitempty"`
}

// IsTransient reports whether the error type belongs to the transient set
// (errors expected to resolve on their own after a short wait).
func (t ErrorType) IsTransient() bool {
	switch t {
	case ErrorTypeTransient, ErrorTypeNetworkError, ErrorTypeTimingIssue:
		return true
	}
	return false
}
