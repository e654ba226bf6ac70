package backoff

import (
	"context"
	"testing"
	"time"
)

func TestDelayExponential(t *testing.T) {
	p := RetryPolicy{
		InitialDelay:          500 * time.Millisecond,
		MaxDelay:              30 * time.Second,
		UseExponentialBackoff: true,
		BackoffMultiplier:     2.0,
	}

	tests := []struct {
		attempt int
		expect  time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1 * time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{10, 30 * time.Second}, // capped at MaxDelay
	}

	for _, tt := range tests {
		if got := Delay(tt.attempt, p); got != tt.expect {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.expect)
		}
	}
}

func TestDelayLinear(t *testing.T) {
	p := RetryPolicy{
		InitialDelay:          250 * time.Millisecond,
		MaxDelay:              10 * time.Second,
		UseExponentialBackoff: false,
		BackoffMultiplier:     2.0,
	}

	for attempt := 1; attempt <= 5; attempt++ {
		if got := Delay(attempt, p); got != 250*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 250ms", attempt, got)
		}
	}
}

func TestDelayDeterministicWithoutJitter(t *testing.T) {
	p := RetryPolicy{
		InitialDelay:          100 * time.Millisecond,
		MaxDelay:              5 * time.Second,
		UseExponentialBackoff: true,
		BackoffMultiplier:     3.0,
	}

	for attempt := 1; attempt <= 6; attempt++ {
		first := Delay(attempt, p)
		for i := 0; i < 10; i++ {
			if got := Delay(attempt, p); got != first {
				t.Fatalf("Delay(%d) not deterministic: %v != %v", attempt, got, first)
			}
		}
	}
}

func TestDelayJitterBounds(t *testing.T) {
	p := RetryPolicy{
		InitialDelay:          200 * time.Millisecond,
		MaxDelay:              10 * time.Second,
		UseExponentialBackoff: true,
		UseJitter:             true,
		BackoffMultiplier:     2.0,
	}
	noJitter := p
	noJitter.UseJitter = false

	for attempt := 1; attempt <= 5; attempt++ {
		base := Delay(attempt, noJitter)
		upper := time.Duration(float64(base) * 1.3)
		for i := 0; i < 100; i++ {
			got := Delay(attempt, p)
			if got < base || got > upper {
				t.Fatalf("Delay(%d) = %v outside [%v, %v]", attempt, got, base, upper)
			}
		}
	}
}

func TestSleepCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, 5*time.Second)
	if err == nil {
		t.Fatal("expected error from cancelled sleep")
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancelled sleep did not return promptly")
	}
}

func TestWorstCaseTotal(t *testing.T) {
	p := RetryPolicy{
		MaxRetries:            3,
		InitialDelay:          time.Second,
		MaxDelay:              2 * time.Second,
		UseExponentialBackoff: true,
		BackoffMultiplier:     2.0,
	}

	// 1s + 2s + 2s (capped)
	if got := WorstCaseTotal(p); got != 5*time.Second {
		t.Errorf("WorstCaseTotal = %v, want 5s", got)
	}
}
