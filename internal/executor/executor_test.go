package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/browser"
	"github.com/vietddude/healer/internal/resilience/backoff"
)

func testConfig() Config {
	return Config{
		MaxRetries:         2,
		TimeoutPerTool:     time.Second,
		MaxConcurrentTools: 2,
		MaxHistorySize:     10,
		Policy: backoff.RetryPolicy{
			MaxRetries:            2,
			InitialDelay:          5 * time.Millisecond,
			MaxDelay:              50 * time.Millisecond,
			UseExponentialBackoff: true,
			BackoffMultiplier:     2.0,
		},
	}
}

// recordingInvoker fails a scripted number of times per tool.
type recordingInvoker struct {
	mu       sync.Mutex
	failures map[string]int
	errs     map[string]error
	calls    map[string]int
	delay    time.Duration
}

func newRecordingInvoker() *recordingInvoker {
	return &recordingInvoker{
		failures: make(map[string]int),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (r *recordingInvoker) failTimes(tool string, n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[tool] = n
	r.errs[tool] = err
}

func (r *recordingInvoker) Invoke(
	ctx context.Context,
	tool string,
	args map[string]domain.Value,
) (any, error) {
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[tool]++
	if r.failures[tool] > 0 {
		r.failures[tool]--
		return nil, r.errs[tool]
	}
	return "ok:" + tool, nil
}

func TestExecuteOneSucceedsFirstAttempt(t *testing.T) {
	inv := newRecordingInvoker()
	e := New(inv, testConfig())

	result := e.ExecuteOne(context.Background(), Call{Tool: "click", CorrelationID: "c1"})

	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.AttemptCount != 1 || result.WasRetried {
		t.Fatalf("attempts = %d retried = %v, want 1/false", result.AttemptCount, result.WasRetried)
	}
}

func TestExecuteOneRetriesUntilSuccess(t *testing.T) {
	inv := newRecordingInvoker()
	inv.failTimes("click", 2, errors.New("element not found"))
	e := New(inv, testConfig())

	result := e.ExecuteOne(context.Background(), Call{Tool: "click", CorrelationID: "c1"})

	if !result.Success {
		t.Fatalf("result = %+v, want success after retries", result)
	}
	if result.AttemptCount != 3 || !result.WasRetried {
		t.Fatalf("attempts = %d retried = %v, want 3/true", result.AttemptCount, result.WasRetried)
	}
}

func TestExecuteOneExhaustsRetries(t *testing.T) {
	inv := newRecordingInvoker()
	inv.failTimes("click", 100, errors.New("element not found"))
	e := New(inv, testConfig())

	result := e.ExecuteOne(context.Background(), Call{Tool: "click", CorrelationID: "c1"})

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.AttemptCount != 3 {
		t.Fatalf("attempts = %d, want MaxRetries+1 = 3", result.AttemptCount)
	}
	if result.Error == "" {
		t.Fatal("failure result should carry the final error")
	}
}

func TestExecuteOneCancellationNotCountedAsFailure(t *testing.T) {
	inv := newRecordingInvoker()
	inv.failTimes("click", 100, errors.New("element not found"))
	cfg := testConfig()
	cfg.Policy.InitialDelay = 5 * time.Second
	e := New(inv, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := e.ExecuteOne(ctx, Call{Tool: "click", CorrelationID: "c1"})

	if !result.Cancelled {
		t.Fatalf("result = %+v, want cancelled", result)
	}
	if result.Success {
		t.Fatal("cancelled result must not be success")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("cancellation did not abort promptly")
	}
}

func TestExecuteOneCancelledWaitingForSlotReportsOneAttempt(t *testing.T) {
	inv := newRecordingInvoker()
	inv.delay = 200 * time.Millisecond
	cfg := testConfig()
	cfg.MaxConcurrentTools = 1
	e := New(inv, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.ExecuteOne(context.Background(), Call{Tool: "navigate", CorrelationID: "c2"})
	}()
	time.Sleep(30 * time.Millisecond) // let the first call claim the slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := e.ExecuteOne(ctx, Call{Tool: "click", CorrelationID: "c2"})
	<-done

	if !result.Cancelled {
		t.Fatalf("result = %+v, want cancelled", result)
	}
	if result.AttemptCount != 1 {
		t.Fatalf("attempt count = %d, want 1", result.AttemptCount)
	}
}

func TestExecuteSequenceRunsAllToCompletion(t *testing.T) {
	inv := newRecordingInvoker()
	inv.failTimes("click", 100, errors.New("element not found"))
	e := New(inv, testConfig())

	calls := []Call{
		{Tool: "navigate", CorrelationID: "s1"},
		{Tool: "click", CorrelationID: "s1"},
		{Tool: "get_text", CorrelationID: "s1"},
	}
	results := e.ExecuteSequence(context.Background(), calls)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3 (run to completion)", len(results))
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Fatalf("result pattern = %v/%v/%v, want ok/fail/ok",
			results[0].Success, results[1].Success, results[2].Success)
	}
}

func TestExecuteWithFallback(t *testing.T) {
	inv := newRecordingInvoker()
	inv.failTimes("click", 100, errors.New("selector not found: #missing"))
	e := New(inv, testConfig())

	primary := Call{Tool: "click", CorrelationID: "f1"}
	fallbacks := []Call{{Tool: "get_text", CorrelationID: "f1"}}

	result := e.ExecuteWithFallback(context.Background(), primary, fallbacks)

	if !result.Success {
		t.Fatalf("result = %+v, want fallback success", result)
	}
	if v := result.Metadata[domain.MetaFallbackUsed]; !v.Bool {
		t.Fatal("metadata fallback_used not set")
	}
	if v := result.Metadata[domain.MetaFallbackIndex]; v.Num != 0 {
		t.Fatalf("fallback_index = %v, want 0", v.Num)
	}
	if v := result.Metadata[domain.MetaPrimaryError]; v.Str == "" {
		t.Fatal("metadata primary_error not set")
	}
}

func TestExecuteWithFallbackAllFail(t *testing.T) {
	inv := newRecordingInvoker()
	inv.failTimes("click", 100, errors.New("fail a"))
	inv.failTimes("type", 100, errors.New("fail b"))
	e := New(inv, testConfig())

	result := e.ExecuteWithFallback(
		context.Background(),
		Call{Tool: "click", CorrelationID: "f2"},
		[]Call{{Tool: "type", CorrelationID: "f2"}},
	)

	if result.Success {
		t.Fatal("expected failure when all fallbacks fail")
	}
	if result.ToolName != "type" {
		t.Fatalf("final result tool = %q, want last fallback", result.ToolName)
	}
}

func TestHistoryBoundedFIFO(t *testing.T) {
	inv := newRecordingInvoker()
	cfg := testConfig()
	cfg.MaxHistorySize = 3
	e := New(inv, cfg)

	for i := 0; i < 5; i++ {
		e.ExecuteOne(context.Background(), Call{Tool: "navigate", CorrelationID: "h1"})
	}

	got := e.GetExecutionHistory("h1")
	if len(got) != 3 {
		t.Fatalf("history = %d entries, want 3 (FIFO bounded)", len(got))
	}
}

func TestHistoryIsolatedPerCorrelationID(t *testing.T) {
	inv := newRecordingInvoker()
	e := New(inv, testConfig())

	e.ExecuteOne(context.Background(), Call{Tool: "navigate", CorrelationID: "a"})
	e.ExecuteOne(context.Background(), Call{Tool: "click", CorrelationID: "b"})

	if got := e.GetExecutionHistory("a"); len(got) != 1 || got[0].ToolName != "navigate" {
		t.Fatalf("history a = %+v", got)
	}
	if got := e.GetExecutionHistory("b"); len(got) != 1 || got[0].ToolName != "click" {
		t.Fatalf("history b = %+v", got)
	}
}

func TestAgentInvokerDispatch(t *testing.T) {
	agent := browser.NewScriptedAgent()
	agent.SetText("#title", "Checkout")
	inv := NewAgentInvoker(agent)
	e := New(inv, testConfig())

	result := e.ExecuteOne(context.Background(), Call{
		Tool:          ToolGetText,
		Args:          map[string]domain.Value{"selector": domain.String("#title")},
		CorrelationID: "c1",
	})

	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.Result != "Checkout" {
		t.Fatalf("result value = %v, want Checkout", result.Result)
	}

	result = e.ExecuteOne(context.Background(), Call{Tool: "unknown_tool", CorrelationID: "c1"})
	if result.Success {
		t.Fatal("unknown tool should fail")
	}
}
