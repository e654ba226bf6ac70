package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/backend"
	"github.com/vietddude/healer/internal/infra/browser"
	"github.com/vietddude/healer/internal/infra/storage/memory"
	"github.com/vietddude/healer/internal/recovery"
	"github.com/vietddude/healer/internal/resilience/backoff"
	"github.com/vietddude/healer/internal/resilience/breaker"
	"github.com/vietddude/healer/internal/routing"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	ctx := context.Background()

	// 1. Create backends: a flaky primary and a reliable fallback
	primary := backend.NewStubBackend("primary", "answer from primary")
	primary.FailTimes(3, errors.New("upstream overloaded"))
	fallback := backend.NewStubBackend("fallback", "answer from fallback")

	backends := backend.NewRegistry()
	backends.Register(primary)
	backends.Register(fallback)

	// 2. Setup routing with a breaker guarding the primary
	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold:      2,
		OpenDuration:          10 * time.Second,
		MinimumStateDuration:  time.Second,
		SuccessThreshold:      1,
		MaxProbes:             1,
		ResetCounterOnSuccess: true,
	})
	router, err := routing.New(backends, breakers, routing.TaskBasedStrategy{}, []domain.RouteConfiguration{
		{
			Name:            "general",
			TaskType:        domain.TaskGeneral,
			PrimaryBackend:  "primary",
			PrimaryModel:    "primary-1",
			FallbackBackend: "fallback",
			FallbackModel:   "fallback-1",
			Priority:        1,
			Enabled:         true,
		},
	})
	if err != nil {
		log.Fatalf("router setup failed: %v", err)
	}

	fmt.Println("=== Routing with circuit breaking ===")
	for i := 0; i < 4; i++ {
		resp, err := router.Complete(ctx, backend.Request{Prompt: "hello"})
		if err != nil {
			log.Printf("Call %d failed: %v", i+1, err)
			continue
		}
		fmt.Printf("Call %d: served by %s: %q\n", i+1, resp.Backend, resp.Text)
	}
	for name, st := range breakers.Snapshots() {
		fmt.Printf("Breaker %s: %s (%d consecutive failures)\n", name, st.State, st.ConsecutiveFailures)
	}

	// 3. Recover a failed browser action: the old selector is gone, the
	// healer proposes a replacement
	agent := browser.NewScriptedAgent()
	healer := &browser.ScriptedHealer{
		Result: browser.HealResult{NewSelector: "#checkout-v2", Confidence: 0.9},
	}
	orch := recovery.NewOrchestrator(
		memory.NewHistoryRepo(),
		nil,
		recovery.Collaborators{
			Healer:      healer,
			Waiter:      &browser.ScriptedWaiter{Stable: true},
			Navigator:   agent,
			Snapshotter: agent,
		},
		backoff.RetryPolicy{
			MaxRetries:            2,
			InitialDelay:          100 * time.Millisecond,
			MaxDelay:              time.Second,
			UseExponentialBackoff: true,
			BackoffMultiplier:     2.0,
		},
	)

	fmt.Println()
	fmt.Println("=== Recovering a broken selector ===")
	ectx := &domain.ExecutionContext{
		Action:   "click",
		Selector: "#checkout",
		PageURL:  "https://shop.example.com/cart",
		TaskID:   "demo-task",
	}
	result := orch.Recover(ctx, errors.New("selector not found: #checkout"), ectx)
	fmt.Printf("Outcome: %s after %d attempt(s)\n", result.Outcome, result.AttemptNumber)
	fmt.Printf("Actions attempted: %v\n", result.ActionsAttempted)
	fmt.Printf("Selector healed to: %s\n", ectx.Selector)
}
