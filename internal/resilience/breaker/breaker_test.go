package breaker

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		FailureThreshold:      3,
		OpenDuration:          30 * time.Second,
		MinimumStateDuration:  5 * time.Second,
		SuccessThreshold:      1,
		MaxProbes:             1,
		ResetCounterOnSuccess: true,
	}
}

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time            { return c.t }
func (c *fakeClock) advance(d time.Duration)   { c.t = c.t.Add(d) }
func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	b := New("test", cfg)
	b.now = clock.now
	return b, clock
}

func TestClosedToOpenOnThreshold(t *testing.T) {
	b, _ := newTestBreaker(testConfig())

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if got := b.Status().State; got != StateClosed {
			t.Fatalf("after %d failures state = %v, want closed", i+1, got)
		}
	}

	b.RecordFailure()
	if got := b.Status().State; got != StateOpen {
		t.Fatalf("after threshold failures state = %v, want open", got)
	}
	if b.Allow() {
		t.Fatal("open breaker admitted a request before cool-down")
	}
}

func TestLazyHalfOpenTransition(t *testing.T) {
	b, clock := newTestBreaker(testConfig())

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.advance(29 * time.Second)
	if b.Allow() {
		t.Fatal("admitted before OpenDuration elapsed")
	}

	clock.advance(2 * time.Second)
	if !b.Allow() {
		t.Fatal("probe not admitted after cool-down")
	}
	if got := b.Status().State; got != StateHalfOpen {
		t.Fatalf("state = %v, want half_open", got)
	}
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	b, clock := newTestBreaker(testConfig())

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.advance(31 * time.Second)
	if !b.Allow() {
		t.Fatal("probe not admitted")
	}

	b.RecordSuccess()
	status := b.Status()
	if status.State != StateClosed {
		t.Fatalf("state = %v, want closed", status.State)
	}
	if status.ConsecutiveFailures != 0 {
		t.Fatalf("consecutive failures = %d, want 0", status.ConsecutiveFailures)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(testConfig())

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.advance(31 * time.Second)
	if !b.Allow() {
		t.Fatal("probe not admitted")
	}

	b.RecordFailure()
	if got := b.Status().State; got != StateOpen {
		t.Fatalf("state = %v, want open after half-open failure", got)
	}
	if b.Allow() {
		t.Fatal("reopened breaker admitted a request")
	}
}

func TestHalfOpenProbeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxProbes = 2
	cfg.SuccessThreshold = 3
	b, clock := newTestBreaker(cfg)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.advance(31 * time.Second)

	if !b.Allow() || !b.Allow() {
		t.Fatal("expected two probes admitted")
	}
	if b.Allow() {
		t.Fatal("third concurrent probe admitted, want at most 2")
	}

	// Finishing a probe frees a slot.
	b.RecordSuccess()
	if !b.Allow() {
		t.Fatal("probe slot not released after outcome")
	}
}

func TestReleaseProbeFreesAbandonedSlot(t *testing.T) {
	b, clock := newTestBreaker(testConfig())

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.advance(31 * time.Second)

	if !b.Allow() {
		t.Fatal("expected probe admitted after cool-down")
	}
	if b.Allow() {
		t.Fatal("second probe admitted, want MaxProbes = 1 enforced")
	}

	// The probe's request was cancelled, no outcome was recorded.
	b.ReleaseProbe()

	if !b.Allow() {
		t.Fatal("abandoned probe slot not released, breaker wedged half-open")
	}
	if got := b.Status().State; got != StateHalfOpen {
		t.Fatalf("state = %v, want half_open", got)
	}

	b.RecordSuccess()
	if got := b.Status().State; got != StateClosed {
		t.Fatalf("after probe success state = %v, want closed", got)
	}
}

func TestReleaseProbeOutsideHalfOpenIsNoOp(t *testing.T) {
	b, _ := newTestBreaker(testConfig())

	b.ReleaseProbe()
	if !b.Allow() {
		t.Fatal("closed breaker refused a request after stray ReleaseProbe")
	}
	if got := b.Status().State; got != StateClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestSuccessResetsFailureCountWhileClosed(t *testing.T) {
	b, _ := newTestBreaker(testConfig())

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if got := b.Status().State; got != StateClosed {
		t.Fatalf("state = %v, want closed (counter should have reset)", got)
	}
}

func TestIdleBreakerReportsHalfOpenFromStatus(t *testing.T) {
	b, clock := newTestBreaker(testConfig())

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.advance(31 * time.Second)

	// No admission check happened; Status alone performs the lazy check.
	if got := b.Status().State; got != StateHalfOpen {
		t.Fatalf("state = %v, want half_open", got)
	}
}

func TestReset(t *testing.T) {
	b, _ := newTestBreaker(testConfig())

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	b.Reset()

	status := b.Status()
	if status.State != StateClosed || status.ConsecutiveFailures != 0 {
		t.Fatalf("after reset: %+v, want closed with zero failures", status)
	}
	if !b.Allow() {
		t.Fatal("reset breaker rejected a request")
	}
}

func TestRegistrySnapshots(t *testing.T) {
	r := NewRegistry(testConfig())

	a := r.GetOrCreate("claude")
	if r.GetOrCreate("claude") != a {
		t.Fatal("GetOrCreate returned a different instance for the same name")
	}
	r.GetOrCreate("openai").RecordFailure()

	snaps := r.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d entries, want 2", len(snaps))
	}
	if snaps["openai"].ConsecutiveFailures != 1 {
		t.Fatalf("openai failures = %d, want 1", snaps["openai"].ConsecutiveFailures)
	}

	r.ResetAll()
	if r.Get("openai").Status().ConsecutiveFailures != 0 {
		t.Fatal("ResetAll did not reset breaker state")
	}
}
