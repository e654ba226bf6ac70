package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// HTTPBackend implements Backend over a JSON HTTP API. The wire shape is a
// minimal completion contract; provider-specific adapters sit behind the
// same endpoint.
type HTTPBackend struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client

	monitor *Monitor
}

// NewHTTPBackend creates a new HTTP-based model backend.
func NewHTTPBackend(name, endpoint, apiKey string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		monitor: NewMonitor(),
	}
}

// Name returns the backend name.
func (b *HTTPBackend) Name() string {
	return b.name
}

// Monitor returns the backend's health monitor.
func (b *HTTPBackend) Monitor() *Monitor {
	return b.monitor
}

type completeRequest struct {
	Prompt    string `json:"prompt"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
}

type completeResponse struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
	Error      string `json:"error,omitempty"`
}

// Complete performs a blocking completion call.
func (b *HTTPBackend) Complete(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	body, err := b.post(ctx, "/v1/complete", completeRequest{
		Prompt:    req.Prompt,
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return Response{}, err
	}

	var cr completeResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		b.monitor.RecordFailure()
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if cr.Error != "" {
		b.monitor.RecordFailure()
		return Response{}, fmt.Errorf("backend %s: %s", b.name, cr.Error)
	}

	latency := time.Since(start)
	b.monitor.RecordSuccess(latency)

	return Response{
		Text:       cr.Text,
		Model:      cr.Model,
		Backend:    b.name,
		TokensUsed: cr.TokensUsed,
		Latency:    latency,
	}, nil
}

// StreamComplete performs a streaming completion over newline-delimited JSON.
func (b *HTTPBackend) StreamComplete(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	jsonData, err := json.Marshal(completeRequest{
		Prompt:    req.Prompt,
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Stream:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, b.endpoint+"/v1/complete", bytes.NewReader(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	b.setHeaders(httpReq)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		b.monitor.RecordFailure()
		return nil, fmt.Errorf("stream call: %w", err)
	}
	if err := b.checkStatus(resp, nil); err != nil {
		resp.Body.Close()
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		start := time.Now()
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			var cr completeResponse
			if err := json.Unmarshal(scanner.Bytes(), &cr); err != nil {
				b.monitor.RecordFailure()
				out <- StreamChunk{Err: fmt.Errorf("decode chunk: %w", err)}
				return
			}
			select {
			case out <- StreamChunk{Text: cr.Text}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			b.monitor.RecordFailure()
			out <- StreamChunk{Err: fmt.Errorf("stream read: %w", err)}
			return
		}
		b.monitor.RecordSuccess(time.Since(start))
		out <- StreamChunk{Done: true}
	}()

	return out, nil
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Embed generates an embedding vector for the given text.
func (b *HTTPBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	body, err := b.post(ctx, "/v1/embed", embedRequest{Text: text})
	if err != nil {
		return nil, err
	}

	var er embedResponse
	if err := json.Unmarshal(body, &er); err != nil {
		b.monitor.RecordFailure()
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if er.Error != "" {
		b.monitor.RecordFailure()
		return nil, fmt.Errorf("backend %s: %s", b.name, er.Error)
	}

	b.monitor.RecordSuccess(time.Since(start))
	return er.Embedding, nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		b.monitor.RecordFailure()
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, b.endpoint+path, bytes.NewReader(jsonData),
	)
	if err != nil {
		b.monitor.RecordFailure()
		return nil, fmt.Errorf("create request: %w", err)
	}
	b.setHeaders(req)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.monitor.RecordFailure()
		return nil, fmt.Errorf("backend call: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if err := b.checkStatus(resp, body); err != nil {
		return nil, err
	}
	if readErr != nil {
		b.monitor.RecordFailure()
		return nil, fmt.Errorf("read response: %w", readErr)
	}
	return body, nil
}

func (b *HTTPBackend) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
}

func (b *HTTPBackend) checkStatus(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		b.monitor.RecordThrottle(retryAfter)
		b.monitor.RecordFailure()
		return fmt.Errorf("rate limited (429), retry after: %v", retryAfter)
	case resp.StatusCode != http.StatusOK:
		b.monitor.RecordFailure()
		if b.monitor.DetectThrottlePattern(string(body)) {
			b.monitor.RecordThrottle(0)
			return fmt.Errorf("throttle detected in response: %s", string(body))
		}
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
