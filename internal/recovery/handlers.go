package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/browser"
	"github.com/vietddude/healer/internal/resilience/backoff"
)

// ActionHandler performs one recovery action. A nil error means the action
// succeeded and the failed step can be retried.
type ActionHandler interface {
	Execute(ctx context.Context, ectx *domain.ExecutionContext, attempt int) error
}

// Collaborators are the external services recovery actions delegate to.
type Collaborators struct {
	Healer      browser.SelectorHealer
	Waiter      browser.StabilityWaiter
	Navigator   browser.Navigator
	Snapshotter browser.Snapshotter
}

// minHealConfidence is the lowest healing confidence worth acting on.
const minHealConfidence = 0.5

// stabilityTimeout bounds a single DOM-stability wait.
const stabilityTimeout = 10 * time.Second

// defaultHandlers wires one handler per action type from the collaborators.
func defaultHandlers(c Collaborators, policy backoff.RetryPolicy) map[domain.RecoveryActionType]ActionHandler {
	h := map[domain.RecoveryActionType]ActionHandler{
		domain.ActionWaitAndRetry: &waitRetryHandler{policy: policy},
	}
	if c.Healer != nil {
		h[domain.ActionAlternativeSelector] = &selectorHandler{
			healer: c.Healer,
			snap:   c.Snapshotter,
		}
	}
	if c.Waiter != nil {
		h[domain.ActionWaitForStability] = &stabilityHandler{waiter: c.Waiter}
	}
	if c.Navigator != nil {
		h[domain.ActionPageRefresh] = &refreshHandler{nav: c.Navigator}
		h[domain.ActionNavigationRetry] = &navRetryHandler{nav: c.Navigator}
		h[domain.ActionClearCookies] = &clearCookiesHandler{nav: c.Navigator}
	}
	return h
}

// waitRetryHandler waits out the backoff delay, then signals the caller to
// retry. Cancellation during the wait propagates so the whole recovery
// aborts instead of burning remaining attempts.
type waitRetryHandler struct {
	policy backoff.RetryPolicy
}

func (h *waitRetryHandler) Execute(ctx context.Context, _ *domain.ExecutionContext, attempt int) error {
	return backoff.Sleep(ctx, backoff.Delay(attempt, h.policy))
}

// selectorHandler asks the healing service for a replacement locator and,
// on success, rewrites the context selector in place.
type selectorHandler struct {
	healer browser.SelectorHealer
	snap   browser.Snapshotter
}

func (h *selectorHandler) Execute(ctx context.Context, ectx *domain.ExecutionContext, _ int) error {
	if ectx == nil || ectx.Selector == "" {
		return fmt.Errorf("no selector to heal")
	}

	var snapshot string
	if h.snap != nil {
		// A missing snapshot degrades healing quality but doesn't block it.
		snapshot, _ = h.snap.PageSnapshot(ctx)
	}

	result, err := h.healer.Heal(ctx, ectx.Selector, snapshot)
	if err != nil {
		return fmt.Errorf("selector healing failed: %w", err)
	}
	if result.Confidence < minHealConfidence || result.NewSelector == "" {
		return fmt.Errorf(
			"healing confidence %.2f below threshold for %q",
			result.Confidence, ectx.Selector,
		)
	}

	ectx.Selector = result.NewSelector
	return nil
}

// stabilityHandler waits for the DOM to settle with a bounded timeout.
type stabilityHandler struct {
	waiter browser.StabilityWaiter
}

func (h *stabilityHandler) Execute(ctx context.Context, ectx *domain.ExecutionContext, _ int) error {
	conditions := []string{"dom_stable"}
	if ectx != nil && ectx.Selector != "" {
		conditions = append(conditions, "visible:"+ectx.Selector)
	}

	stable, err := h.waiter.WaitForStable(ctx, conditions, stabilityTimeout)
	if err != nil {
		return fmt.Errorf("stability wait failed: %w", err)
	}
	if !stable {
		return fmt.Errorf("page did not stabilize within %v", stabilityTimeout)
	}
	return nil
}

// refreshHandler reloads the current page.
type refreshHandler struct {
	nav browser.Navigator
}

func (h *refreshHandler) Execute(ctx context.Context, _ *domain.ExecutionContext, _ int) error {
	if err := h.nav.Refresh(ctx); err != nil {
		return fmt.Errorf("page refresh failed: %w", err)
	}
	return nil
}

// navRetryHandler retries navigation to the page the failure occurred on.
type navRetryHandler struct {
	nav browser.Navigator
}

func (h *navRetryHandler) Execute(ctx context.Context, ectx *domain.ExecutionContext, _ int) error {
	if ectx == nil || ectx.PageURL == "" {
		return fmt.Errorf("no page URL to navigate to")
	}
	if err := h.nav.Navigate(ctx, ectx.PageURL); err != nil {
		return fmt.Errorf("navigation retry failed: %w", err)
	}
	return nil
}

// clearCookiesHandler clears session state, then reloads so the page picks
// up the clean session.
type clearCookiesHandler struct {
	nav browser.Navigator
}

func (h *clearCookiesHandler) Execute(ctx context.Context, _ *domain.ExecutionContext, _ int) error {
	if err := h.nav.ClearCookies(ctx); err != nil {
		return fmt.Errorf("clear cookies failed: %w", err)
	}
	if err := h.nav.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh after cookie clear failed: %w", err)
	}
	return nil
}
