package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ScriptedAgent is an in-memory Agent for tests and demos. Each operation
// can be scripted to fail a fixed number of times before succeeding.
type ScriptedAgent struct {
	mu        sync.Mutex
	failures  map[string]int   // op -> remaining failures
	errs      map[string]error // op -> error to return while failing
	texts     map[string]string
	callCount map[string]int
}

// NewScriptedAgent creates an agent that succeeds on every call until
// scripted otherwise.
func NewScriptedAgent() *ScriptedAgent {
	return &ScriptedAgent{
		failures:  make(map[string]int),
		errs:      make(map[string]error),
		texts:     make(map[string]string),
		callCount: make(map[string]int),
	}
}

// FailTimes scripts op to fail n times with err before succeeding.
func (a *ScriptedAgent) FailTimes(op string, n int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[op] = n
	a.errs[op] = err
}

// SetText scripts the text returned by GetText for a selector.
func (a *ScriptedAgent) SetText(selector, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.texts[selector] = text
}

// Calls reports how many times op was invoked.
func (a *ScriptedAgent) Calls(op string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.callCount[op]
}

func (a *ScriptedAgent) step(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callCount[op]++
	if a.failures[op] > 0 {
		a.failures[op]--
		if err := a.errs[op]; err != nil {
			return err
		}
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

func (a *ScriptedAgent) Navigate(ctx context.Context, url string) error {
	return a.step(ctx, "navigate")
}

func (a *ScriptedAgent) Click(ctx context.Context, selector string) error {
	return a.step(ctx, "click")
}

func (a *ScriptedAgent) Type(ctx context.Context, selector, text string) error {
	return a.step(ctx, "type")
}

func (a *ScriptedAgent) GetText(ctx context.Context, selector string) (string, error) {
	if err := a.step(ctx, "get_text"); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.texts[selector], nil
}

func (a *ScriptedAgent) Screenshot(ctx context.Context) ([]byte, error) {
	if err := a.step(ctx, "screenshot"); err != nil {
		return nil, err
	}
	return []byte("png"), nil
}

func (a *ScriptedAgent) Refresh(ctx context.Context) error {
	return a.step(ctx, "refresh")
}

func (a *ScriptedAgent) ClearCookies(ctx context.Context) error {
	return a.step(ctx, "clear_cookies")
}

func (a *ScriptedAgent) PageSnapshot(ctx context.Context) (string, error) {
	if err := a.step(ctx, "page_snapshot"); err != nil {
		return "", err
	}
	return "<html></html>", nil
}

// ScriptedHealer is a SelectorHealer returning a fixed replacement.
type ScriptedHealer struct {
	Result HealResult
	Err    error
}

func (h *ScriptedHealer) Heal(ctx context.Context, selector, snapshot string) (HealResult, error) {
	if h.Err != nil {
		return HealResult{}, h.Err
	}
	return h.Result, nil
}

// ScriptedWaiter is a StabilityWaiter with a fixed answer.
type ScriptedWaiter struct {
	Stable bool
	Err    error
}

func (w *ScriptedWaiter) WaitForStable(
	ctx context.Context,
	conditions []string,
	timeout time.Duration,
) (bool, error) {
	if w.Err != nil {
		return false, w.Err
	}
	return w.Stable, nil
}
