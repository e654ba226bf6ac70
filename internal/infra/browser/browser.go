// Package browser defines the automation collaborators consumed by the
// recovery engine. Concrete page drivers live outside this module; the
// engine only depends on these interfaces.
package browser

import (
	"context"
	"time"
)

// Agent is the browser automation surface. Every call returns an error on
// failure; implementations may be slow or flaky, which is the point.
type Agent interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	GetText(ctx context.Context, selector string) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Navigator exposes the page-level remediations the orchestrator can ask for.
type Navigator interface {
	// Refresh reloads the current page.
	Refresh(ctx context.Context) error

	// Navigate retries navigation to the given URL.
	Navigate(ctx context.Context, url string) error

	// ClearCookies clears session state for the current origin.
	ClearCookies(ctx context.Context) error
}

// HealResult is a proposed replacement locator.
type HealResult struct {
	NewSelector string
	Confidence  float64
}

// SelectorHealer proposes an alternative locator for a broken selector.
type SelectorHealer interface {
	Heal(ctx context.Context, selector, pageSnapshot string) (HealResult, error)
}

// StabilityWaiter blocks until the DOM settles or the timeout expires.
type StabilityWaiter interface {
	WaitForStable(ctx context.Context, conditions []string, timeout time.Duration) (bool, error)
}

// Snapshotter provides the page snapshot that selector healing operates on.
type Snapshotter interface {
	PageSnapshot(ctx context.Context) (string, error)
}
