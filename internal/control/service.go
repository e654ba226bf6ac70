// Package control wires the application together: storage, backends,
// routing, recovery and the health server, built from one AppConfig.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/healer/internal/core/config"
	"github.com/vietddude/healer/internal/executor"
	"github.com/vietddude/healer/internal/health"
	"github.com/vietddude/healer/internal/infra/backend"
	"github.com/vietddude/healer/internal/infra/browser"
	redisclient "github.com/vietddude/healer/internal/infra/redis"
	"github.com/vietddude/healer/internal/infra/storage"
	"github.com/vietddude/healer/internal/infra/storage/memory"
	"github.com/vietddude/healer/internal/infra/storage/postgres"
	"github.com/vietddude/healer/internal/recovery"
	"github.com/vietddude/healer/internal/resilience/breaker"
	"github.com/vietddude/healer/internal/routing"
)

// Options carries runtime dependencies that do not come from configuration.
// Zero-value fields are allowed; the matching subsystems are then inactive.
type Options struct {
	// Agent drives the browser; it powers the tool executor.
	Agent browser.Agent
	// Browser collaborators power the recovery action handlers.
	Browser recovery.Collaborators
	// ExtraBackends are registered alongside the configured ones, useful
	// for in-process or test backends.
	ExtraBackends []backend.Backend
}

// Service is the assembled application.
type Service struct {
	cfg *config.AppConfig
	log *slog.Logger

	db        *postgres.DB
	redis     *redisclient.Client
	grpcConns []*backend.GRPCConn

	store        storage.HistoryRepository
	backends     *backend.Registry
	breakers     *breaker.Registry
	router       *routing.Router
	orchestrator *recovery.Orchestrator
	executor     *executor.Executor
	healthServer *health.Server
}

// NewService builds a service from validated configuration. Postgres and
// Redis are optional: without a database URL history lives in memory, and
// without Redis the learned-action cache is disabled.
func NewService(cfg *config.AppConfig, opts Options) (*Service, error) {
	s := &Service{
		cfg: cfg,
		log: slog.Default(),
	}

	// Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		s.db = db
		s.store = postgres.NewHistoryRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		s.store = memory.NewHistoryRepo()
		slog.Info("Using Memory storage")
	}

	// Learned-action cache
	var cache recovery.ActionCache
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, learned-action cache disabled", "error", err)
		} else {
			s.redis = client
			cache = client
		}
	}

	// Backends
	s.backends = backend.NewRegistry()
	for _, bc := range cfg.Backends {
		b, err := buildBackend(bc, cfg.Server.RequestTimeoutMs)
		if err != nil {
			return nil, err
		}
		s.backends.Register(b)
	}
	for _, b := range opts.ExtraBackends {
		s.backends.Register(b)
	}

	// Routing
	s.breakers = breaker.NewRegistry(cfg.Breaker.BreakerSettings())
	strategy, err := buildStrategy(cfg.Routing, s.backends)
	if err != nil {
		return nil, err
	}
	s.router, err = routing.New(s.backends, s.breakers, strategy, cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	// Recovery
	s.orchestrator = recovery.NewOrchestrator(s.store, cache, opts.Browser, cfg.Retry.Policy())

	// Tool executor
	if opts.Agent != nil {
		s.executor = executor.New(
			executor.NewAgentInvoker(opts.Agent),
			cfg.Executor.ExecutorSettings(cfg.Retry),
		)
	}

	// Health
	monitor := health.NewMonitor(s.backends, s.breakers, s.orchestrator)
	for _, bc := range cfg.Backends {
		if bc.GRPCHealthEndpoint == "" {
			continue
		}
		conn, err := backend.NewGRPCConn(bc.Name, bc.GRPCHealthEndpoint)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", bc.Name, err)
		}
		s.grpcConns = append(s.grpcConns, conn)
		monitor.AddProbe(bc.Name, conn.Healthy)
	}
	s.healthServer = health.NewServer(monitor, cfg.Server.Port)

	return s, nil
}

func buildBackend(bc config.BackendConfig, requestTimeoutMs int) (backend.Backend, error) {
	switch bc.Type {
	case "http":
		timeout := time.Duration(requestTimeoutMs) * time.Millisecond
		return backend.NewHTTPBackend(bc.Name, bc.Endpoint, bc.APIKey, timeout), nil
	case "stub":
		return backend.NewStubBackend(bc.Name, "ok"), nil
	default:
		return nil, fmt.Errorf("backend %q: unknown type %q", bc.Name, bc.Type)
	}
}

func buildStrategy(rc config.RoutingConfig, backends *backend.Registry) (routing.Strategy, error) {
	switch rc.Strategy {
	case "task_based":
		return routing.TaskBasedStrategy{}, nil
	case "cost_optimized":
		return routing.CostOptimizedStrategy{QualityFloor: rc.QualityFloor}, nil
	case "performance_optimized":
		return routing.PerformanceOptimizedStrategy{
			Probe: func(name string) time.Duration {
				if m := backends.Monitor(name); m != nil {
					return m.AverageLatency()
				}
				return 0
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown routing strategy %q", rc.Strategy)
	}
}

// Router routes model requests.
func (s *Service) Router() *routing.Router {
	return s.router
}

// Orchestrator runs recovery for failed browser actions.
func (s *Service) Orchestrator() *recovery.Orchestrator {
	return s.orchestrator
}

// Executor runs browser tools with retry. Nil when no agent was supplied.
func (s *Service) Executor() *executor.Executor {
	return s.executor
}

// Backends exposes the backend registry.
func (s *Service) Backends() *backend.Registry {
	return s.backends
}

// Breakers exposes the breaker registry.
func (s *Service) Breakers() *breaker.Registry {
	return s.breakers
}

// Start launches the health server. Request paths are pull-driven and need
// no background loops.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	s.log.Info("Service started", "port", s.cfg.Server.Port)
	return nil
}

// Stop shuts the service down.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping service...")

	if err := s.healthServer.Stop(ctx); err != nil {
		s.log.Warn("Failed to stop health server", "error", err)
	}
	for _, conn := range s.grpcConns {
		if err := conn.Close(); err != nil {
			s.log.Warn("Failed to close gRPC connection", "backend", conn.Name(), "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	s.log.Info("Service stopped")
	return nil
}
