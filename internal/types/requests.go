package types

// ------------------------------
// Request Types
// ------------------------------

// LoginRequest holds the credentials sent to the identity provider.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfilePatch carries a partial profile update. Nil fields are left
// untouched by the merge.
type ProfilePatch struct {
	Username              *string       `json:"username,omitempty"`
	FullName              *string       `json:"fullName,omitempty"`
	AvatarURL             *string       `json:"avatarUrl,omitempty"`
	LearningPace          *LearningPace `json:"learningPace,omitempty"`
	DailyTimeLimitMinutes *int          `json:"dailyTimeLimitMinutes,omitempty"`
	DifficultyPreferences []string      `json:"difficultyPreferences,omitempty"`
	AdaptiveDifficulty    *bool         `json:"adaptiveDifficulty,omitempty"`
}

// Apply merges the patch into a copy of base and returns the result.
func (p ProfilePatch) Apply(base *SessionRecord) *SessionRecord {
	out := base.Clone()
	if p.Username != nil {
		out.Username = *p.Username
	}
	if p.FullName != nil {
		out.FullName = *p.FullName
	}
	if p.AvatarURL != nil {
		out.AvatarURL = p.AvatarURL
	}
	if p.LearningPace != nil {
		out.LearningPace = *p.LearningPace
	}
	if p.DailyTimeLimitMinutes != nil {
		out.DailyTimeLimitMinutes = *p.DailyTimeLimitMinutes
	}
	if p.DifficultyPreferences != nil {
		out.DifficultyPreferences = append([]string(nil), p.DifficultyPreferences...)
	}
	if p.AdaptiveDifficulty != nil {
		out.AdaptiveDifficulty = *p.AdaptiveDifficulty
	}
	return out
}
