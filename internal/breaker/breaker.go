// Package breaker implements a per-platform circuit breaker. One breaker
// exists per platform identifier, shared by every sync run in the process so
// failures observed by one run throttle concurrent runs against the same
// platform. The registry is passed to constructors explicitly; tests inject a
// fresh registry instead of resetting globals.
package breaker

import (
	"sync"
	"time"

	"github.com/adlift/adsync/internal/logging"
	"github.com/adlift/adsync/internal/model"
)

// State is the observable breaker state. Half-open is implicit: while open,
// the first Allow after the cooldown lets exactly one probe through and the
// probe's outcome decides closed versus open.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

// Config tunes a breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold int
	// Cooldown is how long an open breaker rejects calls before allowing a
	// probe.
	Cooldown time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
	}
}

// Breaker tracks consecutive failures for a single platform.
type Breaker struct {
	mu sync.Mutex

	platform model.Platform
	config   Config
	now      func() time.Time

	state         State
	failures      int
	openedAt      time.Time
	probeInFlight bool
}

// New creates a closed breaker for the platform.
func New(platform model.Platform, config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultConfig().Cooldown
	}
	return &Breaker{
		platform: platform,
		config:   config,
		now:      time.Now,
		state:    StateClosed,
	}
}

// Allow reports whether a call may proceed. While open it returns false
// until the cooldown elapses, then lets a single probe through; the probe's
// RecordSuccess/RecordFailure decides what happens next.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return true
	}

	if b.now().Sub(b.openedAt) < b.config.Cooldown {
		return false
	}
	if b.probeInFlight {
		return false
	}
	b.probeInFlight = true
	logging.Debug("circuit breaker allowing probe",
		logging.Platform(string(b.platform)),
	)
	return true
}

// RecordSuccess notes a successful call. A success while closed resets the
// consecutive-failure counter; a successful probe closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		logging.Debug("circuit breaker closing after successful probe",
			logging.Platform(string(b.platform)),
		)
	}
	b.state = StateClosed
	b.failures = 0
	b.probeInFlight = false
}

// RecordFailure notes a failed call. Reaching the threshold of consecutive
// failures opens the breaker; a failed probe re-opens it and restarts the
// cooldown.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		// Failed probe.
		b.openedAt = b.now()
		b.probeInFlight = false
		return
	}

	b.failures++
	if b.failures >= b.config.FailureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
		b.probeInFlight = false
		logging.Warn("circuit breaker opened",
			logging.Platform(string(b.platform)),
			logging.Count(b.failures),
		)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Registry hands out one breaker per platform identifier. Safe for
// concurrent use.
type Registry struct {
	mu       sync.Mutex
	config   Config
	breakers map[model.Platform]*Breaker
}

// NewRegistry creates a registry whose breakers share the given config.
func NewRegistry(config Config) *Registry {
	return &Registry{
		config:   config,
		breakers: make(map[model.Platform]*Breaker),
	}
}

// For returns the breaker for a platform, creating it on first use.
func (r *Registry) For(platform model.Platform) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[platform]
	if !ok {
		b = New(platform, r.config)
		r.breakers[platform] = b
	}
	return b
}
