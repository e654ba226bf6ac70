package backend

import (
	"context"
	"sync"
)

// StubBackend is an in-memory Backend for tests and demos. It can be
// scripted to fail a fixed number of calls before succeeding.
type StubBackend struct {
	name string

	mu        sync.Mutex
	failTimes int
	failErr   error
	reply     string
	calls     int
}

// NewStubBackend creates a stub that answers every call with reply.
func NewStubBackend(name, reply string) *StubBackend {
	return &StubBackend{name: name, reply: reply}
}

// FailTimes scripts the next n calls to fail with err.
func (b *StubBackend) FailTimes(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failTimes = n
	b.failErr = err
}

// Calls reports how many calls the stub received.
func (b *StubBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *StubBackend) next() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failTimes > 0 {
		b.failTimes--
		return b.failErr
	}
	return nil
}

func (b *StubBackend) Name() string {
	return b.name
}

func (b *StubBackend) Complete(ctx context.Context, req Request) (Response, error) {
	if err := b.next(); err != nil {
		return Response{}, err
	}
	return Response{
		Text:    b.reply,
		Model:   req.Model,
		Backend: b.name,
	}, nil
}

func (b *StubBackend) StreamComplete(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	if err := b.next(); err != nil {
		return nil, err
	}
	out := make(chan StreamChunk, 2)
	out <- StreamChunk{Text: b.reply}
	out <- StreamChunk{Done: true}
	close(out)
	return out, nil
}

func (b *StubBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := b.next(); err != nil {
		return nil, err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}
