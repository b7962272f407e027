// Package cache provides typed read/write of the single SessionRecord
// across the three storage mediums. Every write fans out so the record
// survives either a full restart (durable + cookies) or a same-tab reload
// (session marker) even when one medium is full or disabled.
package cache

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dsalearn/sessionkit/internal/kv"
	"github.com/dsalearn/sessionkit/internal/types"
)

// Storage keys and cookie names.
const (
	KeySession         = "dsa.session"
	KeyRememberedEmail = "dsa.remembered_email"
	KeySessionMarker   = "dsa_session_active"
	KeyOfflineMarker   = "dsa_offline_mode"
	CookieUserID       = "dsa_user_id"
	CookieAuthState    = "dsa_auth_state"

	// AuthStateValue is the fixed auth-state cookie payload.
	AuthStateValue = "authenticated"
)

// DefaultTTL is how long a cached record stays trustworthy.
const DefaultTTL = 7 * 24 * time.Hour

// envelope is the durable on-disk form of the record plus its write stamp.
type envelope struct {
	Record   *types.SessionRecord `json:"record"`
	StoredAt time.Time            `json:"storedAt"`
}

// SessionCache owns the session keys across the three mediums.
type SessionCache struct {
	durable kv.Store
	session kv.Store
	cookies kv.Store
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// New builds a cache over the three mediums. ttl <= 0 selects DefaultTTL.
func New(durable, session, cookies kv.Store, ttl time.Duration, log zerolog.Logger) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SessionCache{
		durable: durable,
		session: session,
		cookies: cookies,
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("component", "session_cache").Logger(),
	}
}

// WithClock overrides the cache's clock. Test hook.
func (c *SessionCache) WithClock(now func() time.Time) *SessionCache {
	c.now = now
	return c
}

// Load returns the cached record and its age. A record older than the TTL,
// structurally invalid, or unparseable reads as absent; unparseable bytes
// are additionally healed so they cannot recur.
func (c *SessionCache) Load() (*types.SessionRecord, time.Duration, bool) {
	raw, ok := c.durable.Get(KeySession)
	if !ok {
		return nil, 0, false
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.log.Warn().Err(err).Msg("cached session failed to decode, repairing")
		c.durable.Set(KeySession, kv.Placeholder)
		return nil, 0, false
	}
	if !env.Record.Valid() {
		return nil, 0, false
	}
	age := c.now().Sub(env.StoredAt)
	if age > c.ttl {
		c.log.Debug().Dur("age", age).Msg("cached session past TTL")
		return nil, 0, false
	}
	return env.Record, age, true
}

// StoredAt reports the write stamp of the cached envelope, if any.
// Surfaced in the diagnostic status snapshot.
func (c *SessionCache) StoredAt() (time.Time, bool) {
	raw, ok := c.durable.Get(KeySession)
	if !ok {
		return time.Time{}, false
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return time.Time{}, false
	}
	return env.StoredAt, true
}

// Store writes the record through every medium: envelope to durable, a
// same-session marker to session storage, and the user-id plus auth-state
// cookies. It reports false only when both restart-surviving mediums
// (durable and cookies) rejected the write.
func (c *SessionCache) Store(rec *types.SessionRecord) bool {
	if !rec.Valid() {
		return false
	}
	raw, err := json.Marshal(envelope{Record: rec, StoredAt: c.now()})
	if err != nil {
		c.log.Error().Err(err).Msg("session record failed to encode")
		return false
	}

	durableOK := c.durable.Set(KeySession, string(raw))
	cookieOK := c.WriteThroughCookies(rec)
	c.session.Set(KeySessionMarker, jsonString(uuid.NewString()))

	if !durableOK {
		c.log.Warn().Msg("durable medium rejected session write")
	}
	if !durableOK && !cookieOK {
		c.log.Error().Msg("no restart-surviving medium accepted the session")
		return false
	}
	return true
}

// WriteThroughCookies refreshes the user-id and auth-state cookies for an
// already-cached record, so cookie-reliant calls work immediately after an
// optimistic publish.
func (c *SessionCache) WriteThroughCookies(rec *types.SessionRecord) bool {
	idOK := c.cookies.Set(CookieUserID, jsonString(rec.UserID))
	stateOK := c.cookies.Set(CookieAuthState, jsonString(AuthStateValue))
	return idOK && stateOK
}

// Clear removes every session key from every medium. Each removal is
// independent; one medium failing does not stop the others. The remembered
// login email deliberately survives.
func (c *SessionCache) Clear() {
	c.durable.Remove(KeySession)
	c.session.Remove(KeySessionMarker)
	c.cookies.Remove(CookieUserID)
	c.cookies.Remove(CookieAuthState)
}

// RememberEmail keeps the login email for form pre-fill across logouts.
func (c *SessionCache) RememberEmail(email string) {
	c.durable.Set(KeyRememberedEmail, jsonString(email))
}

// RememberedEmail returns the remembered login email, if any.
func (c *SessionCache) RememberedEmail() (string, bool) {
	raw, ok := c.durable.Get(KeyRememberedEmail)
	if !ok {
		return "", false
	}
	var email string
	if err := json.Unmarshal([]byte(raw), &email); err != nil || email == "" {
		return "", false
	}
	return email, true
}

// ClearRememberedEmail forgets the remembered login email.
func (c *SessionCache) ClearRememberedEmail() {
	c.durable.Remove(KeyRememberedEmail)
}

// MarkOffline sets the session-scoped offline-mode marker.
func (c *SessionCache) MarkOffline() {
	c.session.Set(KeyOfflineMarker, jsonString("1"))
}

// ClearOffline removes the offline-mode marker.
func (c *SessionCache) ClearOffline() {
	c.session.Remove(KeyOfflineMarker)
}

// Offline reports whether the offline-mode marker is set.
func (c *SessionCache) Offline() bool {
	_, ok := c.session.Get(KeyOfflineMarker)
	return ok
}

func jsonString(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
