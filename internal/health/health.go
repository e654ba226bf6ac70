// Package health provides system health monitoring and status reporting.
package health

import (
	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/backend"
	"github.com/vietddude/healer/internal/resilience/breaker"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// BackendHealth contains health details for one model backend.
type BackendHealth struct {
	Name    string               `json:"name"`
	Status  SystemStatus         `json:"status"`
	Monitor backend.MonitorStats `json:"monitor"`
	Breaker *breaker.Status      `json:"breaker,omitempty"`
}

// Report contains the full system health report.
type Report struct {
	SystemStatus SystemStatus              `json:"system_status"`
	Backends     map[string]BackendHealth  `json:"backends"`
	Breakers     map[string]breaker.Status `json:"breakers"`
	Recovery     domain.RecoveryStats      `json:"recovery"`
}
