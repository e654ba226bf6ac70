// Package backend implements model backend interfaces.
//
// This package contains:
//   - Backend interface: core abstraction for generative-model endpoints
//   - HTTPBackend: JSON-over-HTTP completion implementation
//   - GRPCConn: gRPC connection handle with health-service probing
//   - BackendMonitor: latency and throttle tracking
//   - Registry: typed name -> backend resolution
package backend

import (
	"context"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

// Request is a model completion request.
type Request struct {
	Prompt       string
	Model        string
	TaskTypeHint domain.TaskType
	MaxTokens    int
	Metadata     map[string]domain.Value
}

// Response is a completed model call.
type Response struct {
	Text       string
	Model      string
	Backend    string
	TokensUsed int
	Latency    time.Duration
}

// StreamChunk is one increment of a streaming completion.
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}

// Backend is a generative-model endpoint. Calls return errors on failure;
// backends may be slow or rate-limited.
type Backend interface {
	// Name identifies the backend in routes and breaker state.
	Name() string

	// Complete performs a blocking completion call.
	Complete(ctx context.Context, req Request) (Response, error)

	// StreamComplete performs a streaming completion; the returned channel
	// is closed after a chunk with Done or Err set.
	StreamComplete(ctx context.Context, req Request) (<-chan StreamChunk, error)

	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
