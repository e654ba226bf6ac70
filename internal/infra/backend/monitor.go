package backend

import (
	"strings"
	"sync"
	"time"
)

// Status represents the health state of a backend.
type Status int

const (
	StatusHealthy   Status = iota // Backend is working normally
	StatusDegraded                // Backend is slow but working
	StatusThrottled               // Backend is rate limiting
)

func (s Status) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	default:
		return "healthy"
	}
}

// MonitorStats holds monitoring statistics for a backend.
type MonitorStats struct {
	Status         string        `json:"status"`
	AverageLatency time.Duration `json:"average_latency"`
	ThrottleCount  int           `json:"throttle_count"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
}

// Monitor tracks backend latency and rate limiting.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	successCount int
	failureCount int

	throttleCount      int
	throttlePatterns   []string
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	slowResponseThreshold time.Duration
}

// NewMonitor creates a new monitor with default settings.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
		throttlePatterns: []string{
			"rate limit exceeded",
			"too many requests",
			"quota exceeded",
			"overloaded",
			"capacity",
		},
		slowResponseThreshold: 3 * time.Second,
	}
}

// RecordSuccess records a successful call with its latency.
func (m *Monitor) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successCount++
	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}
}

// RecordFailure records a failed call.
func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failureCount++
}

// RecordThrottle records a rate limiting response.
func (m *Monitor) RecordThrottle(retryAfter time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.throttleCount++
	m.lastThrottleTime = time.Now()
	if retryAfter > 0 {
		m.retryAfterDuration = retryAfter
	} else {
		m.retryAfterDuration = time.Minute
	}
}

// DetectThrottlePattern checks if a message contains throttle patterns.
func (m *Monitor) DetectThrottlePattern(message string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lowerMsg := strings.ToLower(message)
	for _, pattern := range m.throttlePatterns {
		if strings.Contains(lowerMsg, pattern) {
			return true
		}
	}
	return false
}

// CheckStatus returns the current status of the backend.
func (m *Monitor) CheckStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.throttleCount > 0 && time.Since(m.lastThrottleTime) < m.retryAfterDuration {
		return StatusThrottled
	}

	if len(m.recentLatencies) > 10 {
		if m.averageLatencyLocked() > m.slowResponseThreshold {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

// AverageLatency returns the average latency of recent successful calls.
func (m *Monitor) AverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.averageLatencyLocked()
}

func (m *Monitor) averageLatencyLocked() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// Stats returns current monitoring statistics.
func (m *Monitor) Stats() MonitorStats {
	status := m.CheckStatus()
	avg := m.AverageLatency()

	m.mu.RLock()
	defer m.mu.RUnlock()

	return MonitorStats{
		Status:         status.String(),
		AverageLatency: avg,
		ThrottleCount:  m.throttleCount,
		SuccessCount:   m.successCount,
		FailureCount:   m.failureCount,
	}
}
