// Package sessionkit is the session persistence and reconciliation engine
// for the learning app: it decides at every point in the application
// lifecycle which of the partially-trustworthy sources (local cache,
// cookies, remote identity provider) describes the current user, and it
// keeps those sources from drifting apart.
//
// The engine renders optimistically: a fresh cached identity is published
// immediately on startup, then verified against the provider in the
// background when the provider circuit allows it. Remote failures degrade
// to the cache; they never reach the UI.
package sessionkit

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dsalearn/sessionkit/internal/cache"
	"github.com/dsalearn/sessionkit/internal/creds"
	skerrors "github.com/dsalearn/sessionkit/internal/errors"
	"github.com/dsalearn/sessionkit/internal/health"
	"github.com/dsalearn/sessionkit/internal/kv"
	"github.com/dsalearn/sessionkit/internal/oracle"
	"github.com/dsalearn/sessionkit/internal/taskq"
	"github.com/dsalearn/sessionkit/internal/types"
)

// Phase is the engine's position in its startup state machine. Diagnostic:
// the published record, not the phase, is what the UI keys off.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseQuickAuth     Phase = "quick_auth_attempted"
	PhaseVerified      Phase = "verified"
	PhaseUnverified    Phase = "unverified"
	PhaseSteady        Phase = "steady"
)

// Status is the diagnostic snapshot exposed for support tooling.
type Status struct {
	Phase               Phase     `json:"phase"`
	SignedIn            bool      `json:"signedIn"`
	UserID              string    `json:"userId,omitempty"`
	Email               string    `json:"email,omitempty"`
	CircuitOpen         bool      `json:"circuitOpen"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastSuccessAt       time.Time `json:"lastSuccessAt,omitzero"`
	LastFailureAt       time.Time `json:"lastFailureAt,omitzero"`
	OfflineMode         bool      `json:"offlineMode"`
	CacheStoredAt       time.Time `json:"cacheStoredAt,omitzero"`
}

// Engine owns the single mutable session slot. All identity mutations go
// through its public operations; every other component sees snapshots.
type Engine struct {
	oracle   Oracle // health-reporting wrapper around the provider
	cache    *cache.SessionCache
	health   *health.Tracker
	chain    *creds.Chain
	exec     executor
	notify   *notifier
	progress ProgressSyncer
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	current *types.SessionRecord
	phase   Phase
	rev     uint64 // bumped on every identity change; stale-revalidation guard

	// construction-time knobs, consumed by New
	ttl         time.Duration
	threshold   int
	allowList   []LocalUser
	durable     Store
	session     Store
	cookies     Store
	cookieAttrs CookieAttributes

	owned      []io.Closer // stores the engine opened itself
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closedOnce uint32
}

// New constructs an Engine over the given provider, keeping its local
// state under dataDir (a sqlite file and a cookie jar, created on first
// use). WithStores bypasses dataDir entirely.
func New(o Oracle, dataDir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		log:       log.Logger,
		now:       time.Now,
		phase:     PhaseUninitialized,
		threshold: health.DefaultThreshold,
		ttl:       cache.DefaultTTL,
		allowList: creds.DefaultAllowList(),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.log = e.log.With().Str("component", "session_engine").Logger()

	if e.durable == nil {
		durable, err := kv.NewSQLite(filepath.Join(dataDir, "session.db"), e.log)
		if err != nil {
			return nil, err
		}
		jar, err := kv.NewCookieJar(filepath.Join(dataDir, "cookies.json"), e.cookieAttrs, e.log)
		if err != nil {
			_ = durable.Close()
			return nil, err
		}
		e.durable, e.session, e.cookies = durable, kv.NewMemStore(), jar
		e.owned = append(e.owned, durable)
	}

	e.cache = cache.New(e.durable, e.session, e.cookies, e.ttl, e.log).WithClock(e.now)
	// The offline marker is session-scoped state the breaker leaves behind
	// for diagnostics; force-reconnect clears it.
	e.health = health.New(e.threshold, e.log, e.cache.MarkOffline).WithClock(e.now)
	e.oracle = &healthOracle{inner: o, tracker: e.health}
	e.chain = creds.New(e.oracle, e.allowList, e.log).WithClock(e.now)
	e.notify = newNotifier()

	if e.exec == nil {
		cfg, err := taskq.LoadConfig()
		if err != nil {
			cfg = taskq.Config{}
		}
		cfg.ErrorHandler = func(err error) {
			e.log.Warn().Err(err).Msg("background job failed")
		}
		e.exec = taskq.New(cfg)
	}

	e.wg.Add(1)
	go e.drainAuthEvents(o.AuthEvents())

	return e, nil
}

// NewHTTPOracle builds the JSON-over-HTTP provider client, wiring in the
// env-gated debug transport.
func NewHTTPOracle(baseURL string) Oracle {
	transport := http.DefaultTransport
	if debugLoggingRequested() {
		transport = &debugTransport{base: transport}
	}
	return oracle.NewHTTP(baseURL, &http.Client{
		Timeout:   oracle.AttemptTimeout,
		Transport: transport,
	})
}

// Close stops background work. Pending queue jobs are drained first. Safe
// to call multiple times.
func (e *Engine) Close() error {
	if !atomic.CompareAndSwapUint32(&e.closedOnce, 0, 1) {
		return nil
	}
	close(e.stopCh)
	e.wg.Wait()
	if e.exec != nil {
		e.exec.Stop()
	}
	e.notify.stop()
	for _, c := range e.owned {
		_ = c.Close()
	}
	return nil
}

// --------------------------------------------------------------------
// Startup
// --------------------------------------------------------------------

// Start resolves the initial identity. It never returns an error: the
// worst case is publishing "no session".
//
// A fresh cached record is published immediately; if the provider circuit
// is closed, a background revalidation follows. With no cached record the
// provider is consulted synchronously (circuit permitting) before "no
// session" is declared.
func (e *Engine) Start(ctx context.Context) {
	rec, age, ok := e.cache.Load()
	if ok {
		e.mu.Lock()
		e.current = rec
		e.phase = PhaseQuickAuth
		e.rev++
		rev := e.rev
		e.mu.Unlock()

		// Optimistic render: cookies refreshed so cookie-reliant calls
		// work before verification completes.
		e.cache.WriteThroughCookies(rec)
		e.publish(rec)
		e.log.Info().Str("user_id", rec.UserID).Dur("cache_age", age).Msg("published cached session")

		if e.health.Allow() {
			e.scheduleRevalidation(rec.UserID, rev)
		} else {
			e.setPhase(PhaseUnverified)
		}
		return
	}

	if e.health.Allow() {
		remote, err := e.oracle.GetCurrentUser(ctx)
		if err == nil && remote != nil {
			e.adopt(remote, PhaseVerified)
			return
		}
		if err != nil {
			e.log.Warn().Err(err).Msg("startup session lookup failed, declaring no session")
		}
	}

	// No medium yielded a valid record: destroy the remnants so a partial
	// cookie or marker cannot linger.
	e.cache.Clear()
	e.mu.Lock()
	e.phase = PhaseSteady
	e.rev++
	e.mu.Unlock()
	e.publish(nil)
}

// --------------------------------------------------------------------
// Login / Logout
// --------------------------------------------------------------------

// Login runs the credential fallback chain: the provider first, then the
// local allow-list. Only validation errors and the provider's final error
// surface here; storage trouble degrades silently.
func (e *Engine) Login(ctx context.Context, email, password string) (*SessionRecord, error) {
	rec, source, err := e.chain.Login(ctx, email, password)
	if err != nil {
		loginsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	loginsTotal.WithLabelValues(string(source)).Inc()

	e.mu.Lock()
	e.current = rec
	e.phase = PhaseSteady
	e.rev++
	e.mu.Unlock()

	e.cache.Store(rec)
	e.cache.RememberEmail(rec.Email)
	e.publish(rec)

	if e.progress != nil {
		// Fire-and-forget; a failed progress sync never unwinds a login.
		e.submitBackground(rec.UserID, "progress sync", func(jctx context.Context) error {
			return e.progress.Sync(jctx, rec.UserID)
		})
	}
	return rec.Clone(), nil
}

// Logout signs the user out. The provider call is best-effort; local state
// is cleared unconditionally so the UI never sees a half-cleared session.
// Idempotent, and never surfaces errors.
func (e *Engine) Logout(ctx context.Context) {
	if e.health.Allow() {
		if err := e.oracle.Logout(ctx); err != nil {
			e.log.Debug().Err(err).Msg("provider logout failed, clearing locally anyway")
		}
	}
	e.signOut("logout")
}

// --------------------------------------------------------------------
// Profile updates
// --------------------------------------------------------------------

// UpdateProfile merges the patch into the current session optimistically:
// the local commit and publish happen first, then the provider is updated
// in the background. Provider failure is logged, never rolled back.
func (e *Engine) UpdateProfile(ctx context.Context, patch ProfilePatch) (*SessionRecord, error) {
	if err := types.ValidatePatch(patch); err != nil {
		return nil, skerrors.NewValidationError(err)
	}

	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return nil, ErrNoSession
	}
	merged := patch.Apply(e.current)
	merged.UpdatedAt = e.now()
	e.current = merged
	e.rev++
	e.mu.Unlock()

	e.cache.Store(merged)
	e.publish(merged)

	if e.health.Allow() {
		e.submitBackground(merged.UserID, "profile propagation", func(jctx context.Context) error {
			return e.oracle.UpdateUser(jctx, patch)
		})
	}
	return merged.Clone(), nil
}

// --------------------------------------------------------------------
// Diagnostics and accessors
// --------------------------------------------------------------------

// Current returns a snapshot of the published identity, or nil.
func (e *Engine) Current() *SessionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

// Subscribe registers fn for session-changed events. fn runs on the
// notifier's goroutine and may call back into the engine.
func (e *Engine) Subscribe(fn SessionHandler) { e.notify.subscribe(fn) }

// ForceReconnect closes the provider circuit and clears the offline
// marker, allowing one more attempt. Idempotent.
func (e *Engine) ForceReconnect() {
	e.health.Reset()
	e.cache.ClearOffline()
	e.log.Info().Msg("force reconnect: circuit closed, offline marker cleared")
}

// Status reports the diagnostic snapshot for support tooling. The circuit
// state is invisible to the UI by default; this is how it is discovered.
func (e *Engine) Status() Status {
	hs := e.health.Snapshot()
	storedAt, _ := e.cache.StoredAt()
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Phase:               e.phase,
		SignedIn:            e.current != nil,
		CircuitOpen:         hs.CircuitOpen,
		ConsecutiveFailures: hs.ConsecutiveFailures,
		LastSuccessAt:       hs.LastSuccessAt,
		LastFailureAt:       hs.LastFailureAt,
		OfflineMode:         e.cache.Offline(),
		CacheStoredAt:       storedAt,
	}
	if e.current != nil {
		st.UserID = e.current.UserID
		st.Email = e.current.Email
	}
	return st
}

// RememberedEmail returns the last login email for form pre-fill.
func (e *Engine) RememberedEmail() (string, bool) { return e.cache.RememberedEmail() }

// AwaitIdle blocks until all background jobs submitted for the current
// identity have run.
func (e *Engine) AwaitIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	key := "startup"
	if e.current != nil {
		key = e.current.UserID
	}
	e.mu.Unlock()

	done := make(chan struct{})
	if err := e.exec.Submit(ctx, key, taskq.JobFunc(func(context.Context) error {
		close(done)
		return nil
	})); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// --------------------------------------------------------------------
// internals
// --------------------------------------------------------------------

// publish hands the snapshot to the notifier and counts it.
func (e *Engine) publish(rec *types.SessionRecord) {
	if rec != nil {
		sessionsPublishedTotal.WithLabelValues("signed_in").Inc()
	} else {
		sessionsPublishedTotal.WithLabelValues("signed_out").Inc()
	}
	e.notify.publish(rec.Clone())
}

// adopt installs a freshly fetched remote record as the identity.
func (e *Engine) adopt(rec *types.SessionRecord, phase Phase) {
	e.mu.Lock()
	e.current = rec
	e.phase = phase
	e.rev++
	e.mu.Unlock()
	e.cache.Store(rec)
	e.publish(rec)
}

// signOut clears local state and publishes "no session". Skips the
// publication when there was nothing to sign out of, keeping the
// operation idempotent.
func (e *Engine) signOut(reason string) {
	e.mu.Lock()
	had := e.current != nil
	e.current = nil
	e.phase = PhaseSteady
	e.rev++
	e.mu.Unlock()

	e.cache.Clear()
	if had {
		e.log.Info().Str("reason", reason).Msg("session cleared")
		e.publish(nil)
	}
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

// scheduleRevalidation verifies the cached identity against the provider
// in the background. rev tags the in-flight check: if the identity changes
// before the result lands, the result is discarded instead of resurrecting
// a stale session.
func (e *Engine) scheduleRevalidation(userID string, rev uint64) {
	job := taskq.JobFunc(func(jctx context.Context) error {
		remote, err := e.oracle.GetCurrentUser(jctx)
		if err != nil {
			// Cache stays authoritative until the provider proves otherwise.
			e.log.Debug().Err(err).Msg("background revalidation failed, keeping cached session")
			e.setPhaseIfRev(rev, PhaseUnverified)
			return nil // the provider client already retried; do not stack queue retries
		}
		e.applyRevalidation(rev, remote)
		return nil
	})
	if err := e.exec.Submit(context.Background(), userID, job); err != nil {
		e.log.Warn().Err(err).Msg("could not schedule revalidation")
		e.setPhaseIfRev(rev, PhaseUnverified)
	}
}

// applyRevalidation reconciles the provider's answer with the published
// identity. Remote wins on any observed difference; a stale in-flight
// result is dropped.
func (e *Engine) applyRevalidation(rev uint64, remote *types.SessionRecord) {
	e.mu.Lock()
	if e.rev != rev {
		e.mu.Unlock()
		revalidationsDiscardedTotal.Inc()
		e.log.Debug().Msg("discarding stale revalidation result")
		return
	}

	if remote == nil {
		// The provider answered and says there is no session. Clear while
		// the revision still holds so a concurrent login cannot be wiped.
		e.current = nil
		e.phase = PhaseSteady
		e.rev++
		e.mu.Unlock()
		e.cache.Clear()
		e.log.Info().Msg("provider reports no session, clearing cached identity")
		e.publish(nil)
		return
	}

	if remote.Equal(e.current) {
		e.phase = PhaseVerified
		e.mu.Unlock()
		return
	}

	e.current = remote
	e.phase = PhaseVerified
	e.rev++
	e.mu.Unlock()

	e.cache.Store(remote)
	e.publish(remote)
	e.log.Info().Str("user_id", remote.UserID).Msg("cached session reconciled from provider")
}

// setPhaseIfRev updates the phase only while the identity is unchanged.
func (e *Engine) setPhaseIfRev(rev uint64, p Phase) {
	e.mu.Lock()
	if e.rev == rev {
		e.phase = p
	}
	e.mu.Unlock()
}

// submitBackground enqueues best-effort work keyed by user id. Submission
// failure is logged, not surfaced.
func (e *Engine) submitBackground(userID, what string, fn func(context.Context) error) {
	job := taskq.JobFunc(func(jctx context.Context) error {
		if err := fn(jctx); err != nil {
			e.log.Warn().Err(err).Str("job", what).Msg("background work failed")
		}
		return nil
	})
	if err := e.exec.Submit(context.Background(), userID, job); err != nil {
		e.log.Warn().Err(err).Str("job", what).Msg("could not enqueue background work")
	}
}

// drainAuthEvents reacts to provider-initiated auth changes on the
// engine's own goroutine, so provider callbacks can never re-enter engine
// operations mid-flight.
func (e *Engine) drainAuthEvents(events <-chan types.AuthEvent) {
	defer e.wg.Done()
	if events == nil {
		return
	}
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case types.AuthSignedOut:
				e.signOut("provider-initiated sign-out")
			case types.AuthSignedIn:
				if ev.Record.Valid() {
					e.adopt(ev.Record, PhaseVerified)
				} else {
					e.mu.Lock()
					userID := ""
					if e.current != nil {
						userID = e.current.UserID
					}
					rev := e.rev
					e.mu.Unlock()
					if userID != "" && e.health.Allow() {
						e.scheduleRevalidation(userID, rev)
					}
				}
			}
		case <-e.stopCh:
			return
		}
	}
}

// healthOracle gates every provider call on the circuit and reports the
// outcome to the tracker. An irrecoverable provider response (wrong
// password, 403) proves the provider reachable, so it counts as contact
// success for breaker purposes even though the call itself failed.
type healthOracle struct {
	inner   Oracle
	tracker *health.Tracker
}

func (h *healthOracle) report(err error) {
	if err == nil || skerrors.IsIrrecoverable(err) {
		h.tracker.Success()
		return
	}
	h.tracker.Failure(err)
}

func (h *healthOracle) Login(ctx context.Context, email, password string) (*types.SessionRecord, error) {
	if !h.tracker.Allow() {
		return nil, ErrCircuitOpen
	}
	rec, err := h.inner.Login(ctx, email, password)
	h.report(err)
	return rec, err
}

func (h *healthOracle) Logout(ctx context.Context) error {
	if !h.tracker.Allow() {
		return ErrCircuitOpen
	}
	err := h.inner.Logout(ctx)
	h.report(err)
	return err
}

func (h *healthOracle) GetCurrentUser(ctx context.Context) (*types.SessionRecord, error) {
	if !h.tracker.Allow() {
		return nil, ErrCircuitOpen
	}
	rec, err := h.inner.GetCurrentUser(ctx)
	h.report(err)
	return rec, err
}

func (h *healthOracle) UpdateUser(ctx context.Context, patch types.ProfilePatch) error {
	if !h.tracker.Allow() {
		return ErrCircuitOpen
	}
	err := h.inner.UpdateUser(ctx, patch)
	h.report(err)
	return err
}

func (h *healthOracle) AuthEvents() <-chan types.AuthEvent { return h.inner.AuthEvents() }
