package sessionkit

import (
	"github.com/dsalearn/sessionkit/internal/creds"
	"github.com/dsalearn/sessionkit/internal/kv"
	"github.com/dsalearn/sessionkit/internal/oracle"
	"github.com/dsalearn/sessionkit/internal/types"
)

// Public type aliases so SDK consumers can import only the sessionkit package.
type (
	// SessionRecord is the published identity plus learning preferences.
	SessionRecord = types.SessionRecord
	// ProfilePatch carries a partial profile update.
	ProfilePatch = types.ProfilePatch
	// LearningPace is the user's preferred lesson pacing.
	LearningPace = types.LearningPace
	// AuthEvent is a provider-initiated sign-in/sign-out notification.
	AuthEvent = types.AuthEvent
	// LocalUser is one offline allow-list credential.
	LocalUser = creds.LocalUser
	// Store is one local persistence medium.
	Store = kv.Store
	// Oracle is the remote identity provider as the engine consumes it.
	Oracle = oracle.Oracle
	// CookieAttributes configure the cookie medium.
	CookieAttributes = kv.CookieAttributes
)

// Learning pace values.
const (
	PaceSlow   = types.PaceSlow
	PaceMedium = types.PaceMedium
	PaceFast   = types.PaceFast
)

// Auth event kinds.
const (
	AuthSignedIn  = types.AuthSignedIn
	AuthSignedOut = types.AuthSignedOut
)

// Cookie SameSite values.
const (
	SameSiteStrict = kv.SameSiteStrict
	SameSiteLax    = kv.SameSiteLax
)
