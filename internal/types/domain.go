package types

import "time"

// ------------------------------
// Core Domain Entities
// ------------------------------

// LearningPace is the user's preferred lesson pacing.
type LearningPace string

const (
	PaceSlow   LearningPace = "slow"
	PaceMedium LearningPace = "medium"
	PaceFast   LearningPace = "fast"
)

// SessionRecord represents the authenticated identity and its learning
// preferences. It is the single value the engine publishes to the rest of
// the application.
type SessionRecord struct {
	UserID                string       `json:"userId"`
	Email                 string       `json:"email"`
	Username              string       `json:"username,omitempty"`
	FullName              string       `json:"fullName,omitempty"`
	AvatarURL             *string      `json:"avatarUrl,omitempty"`
	LearningPace          LearningPace `json:"learningPace,omitempty"`
	DailyTimeLimitMinutes int          `json:"dailyTimeLimitMinutes,omitempty"`
	DifficultyPreferences []string     `json:"difficultyPreferences,omitempty"`
	AdaptiveDifficulty    bool         `json:"adaptiveDifficulty"`
	CreatedAt             time.Time    `json:"createdAt"`
	UpdatedAt             time.Time    `json:"updatedAt"`
}

// Valid reports whether the record may be published. A record without a
// user id or email is treated as absent everywhere in the engine.
func (r *SessionRecord) Valid() bool {
	return r != nil && r.UserID != "" && r.Email != ""
}

// Clone returns a deep copy so published snapshots cannot be mutated by
// subscribers behind the engine's back.
func (r *SessionRecord) Clone() *SessionRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.AvatarURL != nil {
		u := *r.AvatarURL
		cp.AvatarURL = &u
	}
	if r.DifficultyPreferences != nil {
		cp.DifficultyPreferences = append([]string(nil), r.DifficultyPreferences...)
	}
	return &cp
}

// Equal reports whether two records agree on every field. The engine uses
// it to decide whether a freshly fetched remote record should overwrite
// the cached one.
func (r *SessionRecord) Equal(o *SessionRecord) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.UserID != o.UserID || r.Email != o.Email || r.Username != o.Username ||
		r.FullName != o.FullName || r.LearningPace != o.LearningPace ||
		r.DailyTimeLimitMinutes != o.DailyTimeLimitMinutes ||
		r.AdaptiveDifficulty != o.AdaptiveDifficulty {
		return false
	}
	if (r.AvatarURL == nil) != (o.AvatarURL == nil) {
		return false
	}
	if r.AvatarURL != nil && *r.AvatarURL != *o.AvatarURL {
		return false
	}
	if len(r.DifficultyPreferences) != len(o.DifficultyPreferences) {
		return false
	}
	for i := range r.DifficultyPreferences {
		if r.DifficultyPreferences[i] != o.DifficultyPreferences[i] {
			return false
		}
	}
	return r.CreatedAt.Equal(o.CreatedAt) && r.UpdatedAt.Equal(o.UpdatedAt)
}

// AuthEventKind identifies a provider-initiated auth state change.
type AuthEventKind string

const (
	AuthSignedIn  AuthEventKind = "SIGNED_IN"
	AuthSignedOut AuthEventKind = "SIGNED_OUT"
)

// AuthEvent is delivered by the oracle's auth-state subscription.
type AuthEvent struct {
	Kind   AuthEventKind
	Record *SessionRecord // populated for SIGNED_IN when the provider includes it
}
