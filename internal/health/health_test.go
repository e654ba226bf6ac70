package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/backend"
	"github.com/vietddude/healer/internal/resilience/breaker"
)

type stubStats struct {
	stats domain.RecoveryStats
	err   error
}

func (s *stubStats) Statistics(ctx context.Context, taskID string) (domain.RecoveryStats, error) {
	return s.stats, s.err
}

func testBreakerConfig() breaker.Config {
	return breaker.Config{
		FailureThreshold:      2,
		OpenDuration:          time.Minute,
		MinimumStateDuration:  time.Second,
		SuccessThreshold:      1,
		MaxProbes:             1,
		ResetCounterOnSuccess: true,
	}
}

func TestMonitor_Healthy(t *testing.T) {
	backends := backend.NewRegistry()
	backends.Register(backend.NewStubBackend("primary", "ok"))
	breakers := breaker.NewRegistry(testBreakerConfig())

	monitor := NewMonitor(backends, breakers, &stubStats{})
	report := monitor.CheckHealth(context.Background())

	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
	if _, ok := report.Backends["primary"]; !ok {
		t.Error("primary backend missing from report")
	}
}

func TestMonitor_OpenBreakerIsCritical(t *testing.T) {
	backends := backend.NewRegistry()
	backends.Register(backend.NewStubBackend("primary", "ok"))
	breakers := breaker.NewRegistry(testBreakerConfig())

	b := breakers.GetOrCreate("primary->fallback")
	b.RecordFailure()
	b.RecordFailure()

	monitor := NewMonitor(backends, breakers, nil)
	report := monitor.CheckHealth(context.Background())

	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
	h := report.Backends["primary"]
	if h.Breaker == nil || h.Breaker.State != breaker.StateOpen {
		t.Errorf("expected open breaker attached to primary, got %+v", h.Breaker)
	}
}

func TestMonitor_RecoveryStats(t *testing.T) {
	backends := backend.NewRegistry()
	breakers := breaker.NewRegistry(testBreakerConfig())
	stats := &stubStats{stats: domain.RecoveryStats{Total: 4, Successful: 3, SuccessRate: 0.75}}

	monitor := NewMonitor(backends, breakers, stats)
	report := monitor.CheckHealth(context.Background())

	if report.Recovery.Total != 4 || report.Recovery.Successful != 3 {
		t.Errorf("recovery stats not propagated: %+v", report.Recovery)
	}
}

func TestMonitor_StatsErrorIgnored(t *testing.T) {
	backends := backend.NewRegistry()
	breakers := breaker.NewRegistry(testBreakerConfig())
	stats := &stubStats{err: errors.New("db down")}

	monitor := NewMonitor(backends, breakers, stats)
	report := monitor.CheckHealth(context.Background())

	if report.Recovery.Total != 0 {
		t.Errorf("expected zero recovery stats on error, got %+v", report.Recovery)
	}
}

func TestServerEndpoints(t *testing.T) {
	backends := backend.NewRegistry()
	backends.Register(backend.NewStubBackend("primary", "ok"))
	breakers := breaker.NewRegistry(testBreakerConfig())

	srv := NewServer(NewMonitor(backends, breakers, nil), 0)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 200 {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != string(StatusHealthy) {
		t.Errorf("status = %q, want healthy", body["status"])
	}

	rec = httptest.NewRecorder()
	srv.handleDetailed(rec, httptest.NewRequest("GET", "/health/detailed", nil))
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode detailed report: %v", err)
	}
	if _, ok := report.Backends["primary"]; !ok {
		t.Error("detailed report missing primary backend")
	}
}
