// Package health tracks the remote identity provider's availability with a
// deliberately one-way circuit breaker: once the breaker opens it stays
// open for the rest of the process, so a dead provider costs the user one
// burst of failures instead of a delay on every page load. Only an
// explicit force-reconnect closes it again.
package health

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultThreshold is the consecutive-failure count that opens the circuit.
const DefaultThreshold = 3

// State is a point-in-time snapshot of the tracker.
type State struct {
	ConsecutiveFailures int
	LastSuccessAt       time.Time
	LastFailureAt       time.Time
	CircuitOpen         bool
}

// Tracker is the health manager. One instance is constructed per engine
// and consulted before every provider call.
type Tracker struct {
	mu        sync.Mutex
	threshold int
	state     State
	now       func() time.Time
	log       zerolog.Logger
	onOpen    func()
}

// New constructs a closed tracker. threshold <= 0 selects DefaultThreshold.
// onOpen, if non-nil, fires exactly once per open transition.
func New(threshold int, log zerolog.Logger, onOpen func()) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{
		threshold: threshold,
		now:       time.Now,
		log:       log.With().Str("component", "health").Logger(),
		onOpen:    onOpen,
	}
}

// WithClock overrides the tracker's clock. Test hook.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
	return t
}

// Allow reports whether provider calls are currently permitted.
func (t *Tracker) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.state.CircuitOpen
}

// Success records a successful provider call, resetting the failure streak.
func (t *Tracker) Success() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.ConsecutiveFailures = 0
	t.state.LastSuccessAt = t.now()
	if !t.state.CircuitOpen {
		circuitOpenGauge.Set(0)
	}
}

// Failure records a failed provider call. Crossing the threshold opens the
// circuit for the remainder of the process.
func (t *Tracker) Failure(err error) {
	t.mu.Lock()
	t.state.ConsecutiveFailures++
	t.state.LastFailureAt = t.now()
	failuresTotal.Inc()
	opened := false
	if !t.state.CircuitOpen && t.state.ConsecutiveFailures >= t.threshold {
		t.state.CircuitOpen = true
		opened = true
		circuitOpenGauge.Set(1)
	}
	streak := t.state.ConsecutiveFailures
	t.mu.Unlock()

	if opened {
		t.log.Warn().Err(err).Int("consecutive_failures", streak).
			Msg("identity provider circuit opened, suppressing remote calls")
		if t.onOpen != nil {
			t.onOpen()
		}
	} else {
		t.log.Debug().Err(err).Int("consecutive_failures", streak).Msg("identity provider call failed")
	}
}

// Reset closes the circuit and zeroes the failure streak. Only the
// user-triggered force-reconnect path calls this. Idempotent.
func (t *Tracker) Reset() {
	t.mu.Lock()
	wasOpen := t.state.CircuitOpen
	t.state.CircuitOpen = false
	t.state.ConsecutiveFailures = 0
	t.mu.Unlock()
	circuitOpenGauge.Set(0)
	if wasOpen {
		t.log.Info().Msg("circuit reset by force-reconnect")
	}
}

// Snapshot returns a copy of the current state for diagnostics.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
