package types

import (
	"fmt"
	"strings"
)

// Credential validation runs before any strategy in the login chain is
// attempted; a failure here short-circuits the whole chain.

const minPasswordLen = 6

// Daily time limit bounds in minutes.
const (
	MinDailyTimeLimit = 30
	MaxDailyTimeLimit = 480
)

// ValidateEmail checks the address has a plausible user@host shape.
// The provider is the real authority; this only rejects obvious typos
// before we spend a network round trip on them.
func ValidateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("invalid email address")
	}
	host := email[at+1:]
	if strings.IndexByte(host, '.') <= 0 || strings.ContainsAny(email, " \t") {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword enforces the minimum length only; composition rules
// belong to the provider.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// ValidatePatch rejects out-of-range preference values before they reach
// storage or the provider.
func ValidatePatch(p ProfilePatch) error {
	if p.DailyTimeLimitMinutes != nil {
		if v := *p.DailyTimeLimitMinutes; v < MinDailyTimeLimit || v > MaxDailyTimeLimit {
			return fmt.Errorf("dailyTimeLimitMinutes must be between %d and %d", MinDailyTimeLimit, MaxDailyTimeLimit)
		}
	}
	if p.LearningPace != nil {
		switch *p.LearningPace {
		case PaceSlow, PaceMedium, PaceFast:
		default:
			return fmt.Errorf("unknown learning pace %q", *p.LearningPace)
		}
	}
	return nil
}
