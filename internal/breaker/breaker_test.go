package breaker

import (
	"testing"
	"time"

	"github.com/adlift/adsync/internal/model"
)

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	b := New(model.GoogleAds, Config{FailureThreshold: threshold, Cooldown: cooldown})
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Fatal("breaker opened before threshold")
	}
	if !b.Allow() {
		t.Fatal("closed breaker must allow calls")
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatal("breaker should open at exactly the threshold")
	}
	if b.Allow() {
		t.Error("open breaker must reject calls before cooldown")
	}
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	if b.Failures() != 0 {
		t.Fatalf("failures = %d after success, want 0", b.Failures())
	}

	// Two more failures stay under the threshold thanks to the reset.
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Error("breaker opened although the counter was reset")
	}
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	// Before cooldown: rejected.
	if b.Allow() {
		t.Fatal("open breaker allowed a call before cooldown")
	}

	// After cooldown: exactly one probe goes through.
	*now = now.Add(61 * time.Second)
	if !b.Allow() {
		t.Fatal("breaker should allow one probe after cooldown")
	}
	if b.Allow() {
		t.Fatal("breaker allowed a second call while the probe is in flight")
	}

	// Successful probe closes the breaker.
	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Error("successful probe should close the breaker")
	}
	if !b.Allow() {
		t.Error("closed breaker must allow calls")
	}
}

func TestBreaker_FailedProbeRestartsCooldown(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	*now = now.Add(61 * time.Second)
	if !b.Allow() {
		t.Fatal("breaker should allow the probe")
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatal("failed probe should keep the breaker open")
	}

	// The cooldown restarted at the failed probe, so 30s later is still shut.
	*now = now.Add(30 * time.Second)
	if b.Allow() {
		t.Error("breaker allowed a call before the restarted cooldown elapsed")
	}

	*now = now.Add(31 * time.Second)
	if !b.Allow() {
		t.Error("breaker should allow a probe after the restarted cooldown")
	}
}

func TestRegistry_OneBreakerPerPlatform(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 2, Cooldown: time.Minute})

	a := r.For(model.GoogleAds)
	b := r.For(model.GoogleAds)
	if a != b {
		t.Error("registry should hand out the same breaker per platform")
	}

	c := r.For(model.MetaAds)
	if a == c {
		t.Error("different platforms must get different breakers")
	}

	// Failures on one platform never throttle another.
	a.RecordFailure()
	a.RecordFailure()
	if a.State() != StateOpen {
		t.Fatal("googleads breaker should be open")
	}
	if c.State() != StateClosed {
		t.Error("meta breaker should be unaffected")
	}
}
