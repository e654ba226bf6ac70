package classify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vietddude/healer/internal/core/domain"
)

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		msg     string
		expect  domain.ErrorType
		minConf float64
	}{
		{"Selector not found: #button", domain.ErrorTypeSelectorNotFound, 0.9},
		{"element not found on page", domain.ErrorTypeSelectorNotFound, 0.9},
		{"waiting for selector \"#app\" timeout exceeded", domain.ErrorTypeTimingIssue, 0.8},
		{"navigation timeout of 30000ms exceeded", domain.ErrorTypeNavigationTimeout, 0.9},
		{"element is not interactable", domain.ErrorTypeElementNotInteractable, 0.8},
		{"element not clickable at point (12, 30)", domain.ErrorTypeElementNotInteractable, 0.8},
		{"net::ERR_CONNECTION_RESET", domain.ErrorTypeNetworkError, 0.8},
		{"dial tcp: connection refused", domain.ErrorTypeNetworkError, 0.9},
		{"429 Too Many Requests", domain.ErrorTypeTransient, 0.8},
		{"monthly quota exceeded", domain.ErrorTypeTransient, 0.8},
		{"context deadline exceeded", domain.ErrorTypeTransient, 0.8},
		{"request timed out", domain.ErrorTypeTransient, 0.7},
		{"target crashed", domain.ErrorTypePageCrash, 0.9},
		{"Uncaught exception: TypeError", domain.ErrorTypeJavaScriptError, 0.8},
		{"permission denied for origin", domain.ErrorTypePermissionDenied, 0.9},
		{"stale element reference", domain.ErrorTypeTimingIssue, 0.8},
	}

	for _, tt := range tests {
		got := Classify(errors.New(tt.msg), nil)
		if got.ErrorType != tt.expect {
			t.Errorf("Classify(%q).ErrorType = %v, want %v", tt.msg, got.ErrorType, tt.expect)
		}
		if got.Confidence < tt.minConf {
			t.Errorf("Classify(%q).Confidence = %v, want >= %v", tt.msg, got.Confidence, tt.minConf)
		}
	}
}

func TestClassifySelectorNotFound(t *testing.T) {
	got := Classify(errors.New("Selector not found: #button"), nil)

	if !got.IsRecoverable {
		t.Fatal("selector-not-found should be recoverable")
	}
	want := map[domain.RecoveryActionType]bool{
		domain.ActionAlternativeSelector: false,
		domain.ActionWaitForStability:    false,
	}
	for _, a := range got.SuggestedActions {
		if _, ok := want[a]; ok {
			want[a] = true
		}
	}
	for a, seen := range want {
		if !seen {
			t.Errorf("suggested actions missing %v: %v", a, got.SuggestedActions)
		}
	}
	if got.SuggestedActions[0] != domain.ActionAlternativeSelector {
		t.Errorf("first suggested action = %v, want alternative_selector", got.SuggestedActions[0])
	}
}

func TestClassifyUnknown(t *testing.T) {
	got := Classify(errors.New("Random error message xyz123"), nil)

	if got.ErrorType != domain.ErrorTypeUnknown {
		t.Fatalf("ErrorType = %v, want unknown", got.ErrorType)
	}
	if got.Confidence != 0.5 {
		t.Fatalf("Confidence = %v, want 0.5", got.Confidence)
	}
	if got.IsRecoverable {
		t.Fatal("unknown errors must not be recoverable")
	}
	if len(got.SuggestedActions) != 1 || got.SuggestedActions[0] != domain.ActionNone {
		t.Fatalf("SuggestedActions = %v, want [none]", got.SuggestedActions)
	}
}

func TestClassifyNilError(t *testing.T) {
	got := Classify(nil, nil)
	if got.ErrorType != domain.ErrorTypeUnknown || got.IsRecoverable {
		t.Fatalf("Classify(nil) = %+v, want unrecoverable unknown", got)
	}
}

func TestClassifyMergesContext(t *testing.T) {
	ectx := &domain.ExecutionContext{
		Action:   "click",
		Selector: "#submit",
		PageURL:  "https://example.com/checkout",
	}
	inner := errors.New("socket closed")
	err := fmt.Errorf("selector not found: #submit: %w", inner)

	got := Classify(err, ectx)

	if got.Context["action"] != "click" {
		t.Errorf("context action = %q, want click", got.Context["action"])
	}
	if got.Context["selector"] != "#submit" {
		t.Errorf("context selector = %q", got.Context["selector"])
	}
	if got.Context["page_url"] != "https://example.com/checkout" {
		t.Errorf("context page_url = %q", got.Context["page_url"])
	}
	if got.Context["inner_message"] != "socket closed" {
		t.Errorf("context inner_message = %q, want socket closed", got.Context["inner_message"])
	}
	if got.Context["inner_type"] == "" {
		t.Error("context inner_type not set")
	}
}

func TestOrderingSpecificBeforeBroad(t *testing.T) {
	// A selector timeout is a timing issue, not a generic transient timeout.
	got := Classify(errors.New("timeout waiting for selector .item"), nil)
	if got.ErrorType != domain.ErrorTypeTimingIssue {
		t.Fatalf("ErrorType = %v, want timing_issue", got.ErrorType)
	}
}

func TestTransientSet(t *testing.T) {
	for _, typ := range []domain.ErrorType{
		domain.ErrorTypeTransient,
		domain.ErrorTypeNetworkError,
		domain.ErrorTypeTimingIssue,
	} {
		if !typ.IsTransient() {
			t.Errorf("%v should be transient", typ)
		}
	}
	if domain.ErrorTypeSelectorNotFound.IsTransient() {
		t.Error("selector_not_found should not be transient")
	}
}
