// Package classify maps raw failures to a typed classification with a fixed
// confidence and an ordered list of suggested recovery actions.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vietddude/healer/internal/core/domain"
)

// rule is one entry in the ordered pattern table. Every pattern must appear
// in the lowercased error text for the rule to match; the first matching
// rule wins, so more specific rules must precede broader ones.
type rule struct {
	patterns   []string
	errType    domain.ErrorType
	confidence float64
}

// Ordered top to bottom. "selector"+"timeout" must stay above the generic
// "timeout" rule or timing issues get misfiled as transient.
var rules = []rule{
	{[]string{"selector", "timeout"}, domain.ErrorTypeTimingIssue, 0.85},
	{[]string{"selector not found"}, domain.ErrorTypeSelectorNotFound, 0.95},
	{[]string{"no node found", "selector"}, domain.ErrorTypeSelectorNotFound, 0.9},
	{[]string{"element not found"}, domain.ErrorTypeSelectorNotFound, 0.9},
	{[]string{"navigation", "timeout"}, domain.ErrorTypeNavigationTimeout, 0.9},
	{[]string{"navigation failed"}, domain.ErrorTypeNavigationTimeout, 0.85},
	{[]string{"not interactable"}, domain.ErrorTypeElementNotInteractable, 0.85},
	{[]string{"not clickable"}, domain.ErrorTypeElementNotInteractable, 0.85},
	{[]string{"element is not visible"}, domain.ErrorTypeElementNotInteractable, 0.8},
	{[]string{"stale element"}, domain.ErrorTypeTimingIssue, 0.8},
	{[]string{"target crashed"}, domain.ErrorTypePageCrash, 0.9},
	{[]string{"page crash"}, domain.ErrorTypePageCrash, 0.9},
	{[]string{"uncaught exception"}, domain.ErrorTypeJavaScriptError, 0.8},
	{[]string{"script error"}, domain.ErrorTypeJavaScriptError, 0.8},
	{[]string{"permission denied"}, domain.ErrorTypePermissionDenied, 0.9},
	{[]string{"access denied"}, domain.ErrorTypePermissionDenied, 0.85},
	{[]string{"403"}, domain.ErrorTypePermissionDenied, 0.8},
	{[]string{"connection refused"}, domain.ErrorTypeNetworkError, 0.9},
	{[]string{"connection reset"}, domain.ErrorTypeNetworkError, 0.9},
	{[]string{"no such host"}, domain.ErrorTypeNetworkError, 0.85},
	{[]string{"net::"}, domain.ErrorTypeNetworkError, 0.8},
	{[]string{"rate limit"}, domain.ErrorTypeTransient, 0.85},
	{[]string{"too many requests"}, domain.ErrorTypeTransient, 0.85},
	{[]string{"429"}, domain.ErrorTypeTransient, 0.8},
	{[]string{"quota"}, domain.ErrorTypeTransient, 0.8},
	{[]string{"503"}, domain.ErrorTypeTransient, 0.75},
	{[]string{"deadline exceeded"}, domain.ErrorTypeTransient, 0.8},
	{[]string{"timeout"}, domain.ErrorTypeTransient, 0.75},
	{[]string{"timed out"}, domain.ErrorTypeTransient, 0.75},
}

// actionTable maps each error type to its fixed, ordered remediation list.
var actionTable = map[domain.ErrorType][]domain.RecoveryActionType{
	domain.ErrorTypeSelectorNotFound: {
		domain.ActionAlternativeSelector,
		domain.ActionWaitForStability,
		domain.ActionPageRefresh,
	},
	domain.ErrorTypeNavigationTimeout: {
		domain.ActionNavigationRetry,
		domain.ActionWaitAndRetry,
	},
	domain.ErrorTypeElementNotInteractable: {
		domain.ActionWaitForStability,
		domain.ActionAlternativeSelector,
	},
	domain.ErrorTypeNetworkError: {domain.ActionWaitAndRetry},
	domain.ErrorTypeTransient:    {domain.ActionWaitAndRetry},
	domain.ErrorTypeTimingIssue:  {domain.ActionWaitAndRetry},
	domain.ErrorTypePageCrash: {
		domain.ActionPageRefresh,
		domain.ActionNavigationRetry,
	},
	domain.ErrorTypeJavaScriptError: {domain.ActionPageRefresh},
	domain.ErrorTypePermissionDenied: {
		domain.ActionClearCookies,
		domain.ActionPageRefresh,
	},
	domain.ErrorTypeUnknown: {domain.ActionNone},
}

const unknownConfidence = 0.5

// BaseActions returns a copy of the fixed action list for an error type.
func BaseActions(t domain.ErrorType) []domain.RecoveryActionType {
	base, ok := actionTable[t]
	if !ok {
		return []domain.RecoveryActionType{domain.ActionNone}
	}
	out := make([]domain.RecoveryActionType, len(base))
	copy(out, base)
	return out
}

// Classify evaluates the pattern table against err and returns a fresh
// classification. It never panics and never returns an error: anything that
// doesn't match becomes ErrorTypeUnknown with confidence 0.5.
func Classify(err error, ectx *domain.ExecutionContext) domain.ErrorClassification {
	c := domain.ErrorClassification{
		ErrorType:  domain.ErrorTypeUnknown,
		Confidence: unknownConfidence,
		Context:    map[string]string{},
	}
	if err == nil {
		c.SuggestedActions = BaseActions(domain.ErrorTypeUnknown)
		return c
	}

	c.Message = err.Error()
	haystack := strings.ToLower(c.Message + " " + fmt.Sprintf("%T", err))

	for _, r := range rules {
		if matchAll(haystack, r.patterns) {
			c.ErrorType = r.errType
			c.Confidence = r.confidence
			break
		}
	}

	c.SuggestedActions = BaseActions(c.ErrorType)
	c.IsRecoverable = recoverable(c.Confidence, c.SuggestedActions)

	if ectx != nil {
		if ectx.Action != "" {
			c.Context["action"] = ectx.Action
		}
		if ectx.Selector != "" {
			c.Context["selector"] = ectx.Selector
		}
		if ectx.PageURL != "" {
			c.Context["page_url"] = ectx.PageURL
		}
	}
	if inner := errors.Unwrap(err); inner != nil {
		c.Context["inner_type"] = fmt.Sprintf("%T", inner)
		c.Context["inner_message"] = inner.Error()
	}

	return c
}

// recoverable requires confident classification and a usable action list.
func recoverable(confidence float64, actions []domain.RecoveryActionType) bool {
	if confidence < 0.7 || len(actions) == 0 {
		return false
	}
	for _, a := range actions {
		if a != domain.ActionNone {
			return true
		}
	}
	return false
}

func matchAll(haystack string, patterns []string) bool {
	for _, p := range patterns {
		if !strings.Contains(haystack, p) {
			return false
		}
	}
	return true
}
