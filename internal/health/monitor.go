package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/backend"
	"github.com/vietddude/healer/internal/resilience/breaker"
)

// RecoveryStatsProvider reports aggregate recovery statistics. An empty
// task ID means all tasks.
type RecoveryStatsProvider interface {
	Statistics(ctx context.Context, taskID string) (domain.RecoveryStats, error)
}

// Probe performs a liveness check against a single backend.
type Probe func(ctx context.Context) error

// Monitor aggregates health status from backends, breakers and the recovery
// history.
type Monitor struct {
	backends *backend.Registry
	breakers *breaker.Registry
	recovery RecoveryStatsProvider

	mu         sync.Mutex
	probes     map[string]Probe
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a new health monitor. recovery may be nil when no
// history store is wired.
func NewMonitor(backends *backend.Registry, breakers *breaker.Registry, recovery RecoveryStatsProvider) *Monitor {
	return &Monitor{
		backends: backends,
		breakers: breakers,
		recovery: recovery,
		probes:   make(map[string]Probe),
	}
}

// AddProbe attaches a liveness probe to a backend. A failing probe degrades
// the backend in the report.
func (m *Monitor) AddProbe(backendName string, p Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[backendName] = p
}

// CheckHealth builds a full report. Checks are rate limited to once per 10s
// to keep the endpoints cheap under probe traffic.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.Backends != nil {
		return m.lastReport
	}

	report := Report{
		SystemStatus: StatusHealthy,
		Backends:     make(map[string]BackendHealth),
		Breakers:     m.breakers.Snapshots(),
	}

	openByBackend := make(map[string]*breaker.Status)
	for name, st := range report.Breakers {
		if st.State != breaker.StateOpen {
			continue
		}
		// Breaker names are either a backend name or "primary->fallback".
		primary := name
		for i := 0; i < len(name)-1; i++ {
			if name[i] == '-' && name[i+1] == '>' {
				primary = name[:i]
				break
			}
		}
		snapshot := st
		openByBackend[primary] = &snapshot
	}

	for name, stats := range m.backends.Stats() {
		h := BackendHealth{
			Name:    name,
			Status:  StatusHealthy,
			Monitor: stats,
			Breaker: openByBackend[name],
		}
		switch {
		case h.Breaker != nil:
			h.Status = StatusCritical
		case stats.Status != backend.StatusHealthy.String():
			h.Status = StatusDegraded
		}
		if probe, ok := m.probes[name]; ok && h.Status == StatusHealthy {
			if err := probe(ctx); err != nil {
				h.Status = StatusDegraded
			}
		}
		report.Backends[name] = h
	}

	if m.recovery != nil {
		if stats, err := m.recovery.Statistics(ctx, ""); err == nil {
			report.Recovery = stats
		}
	}

	// Worst component status wins.
	for _, b := range report.Backends {
		if b.Status == StatusCritical {
			report.SystemStatus = StatusCritical
			break
		}
		if b.Status == StatusDegraded {
			report.SystemStatus = StatusDegraded
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
