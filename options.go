package sessionkit

// This file defines functional options that configure the Engine during
// construction. Keeping them in a standalone file makes it easy to
// discover all available knobs at a glance.

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Option configures an Engine during construction in New.
// Options must be deterministic and side-effect free.
type Option func(*Engine) error

// WithTTL sets how long a cached session record stays trustworthy.
// The default is seven days.
func WithTTL(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return fmt.Errorf("ttl must be > 0")
		}
		e.ttl = d
		return nil
	}
}

// WithCircuitThreshold sets the consecutive-failure count that opens the
// provider circuit for the rest of the process. The default is 3.
func WithCircuitThreshold(n int) Option {
	return func(e *Engine) error {
		if n <= 0 {
			return fmt.Errorf("circuit threshold must be > 0")
		}
		e.threshold = n
		return nil
	}
}

// WithAllowList replaces the built-in offline login credentials.
func WithAllowList(users []LocalUser) Option {
	return func(e *Engine) error {
		e.allowList = users
		return nil
	}
}

// WithStores injects the three storage mediums directly, bypassing the
// default sqlite/in-memory/cookie-jar construction. Primarily for tests
// and embedders with their own persistence.
func WithStores(durable, session, cookies Store) Option {
	return func(e *Engine) error {
		if durable == nil || session == nil || cookies == nil {
			return fmt.Errorf("all three stores are required")
		}
		e.durable, e.session, e.cookies = durable, session, cookies
		return nil
	}
}

// WithCookieAttributes overrides the attributes applied to every cookie
// write: path, SameSite, Secure, and max-age.
func WithCookieAttributes(attrs CookieAttributes) Option {
	return func(e *Engine) error {
		e.cookieAttrs = attrs
		return nil
	}
}

// WithExecutor replaces the default background queue.
func WithExecutor(exec executor) Option {
	return func(e *Engine) error {
		if exec == nil {
			return fmt.Errorf("executor cannot be nil")
		}
		e.exec = exec
		return nil
	}
}

// WithProgressSyncer registers the collaborator synced after each login.
func WithProgressSyncer(p ProgressSyncer) Option {
	return func(e *Engine) error {
		e.progress = p
		return nil
	}
}

// WithLogger replaces the engine's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) error {
		e.log = log
		return nil
	}
}

// WithClock overrides the engine's clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		e.now = now
		return nil
	}
}
