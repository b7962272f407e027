// Package creds implements the login fallback chain: the remote provider
// first, then a fixed local allow-list so a known operator can still sign
// in while the provider is down. The chain is used only for explicit
// login, never for startup revalidation.
package creds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	skerrors "github.com/dsalearn/sessionkit/internal/errors"
	"github.com/dsalearn/sessionkit/internal/oracle"
	"github.com/dsalearn/sessionkit/internal/types"
)

// LocalUser is one allow-list entry. Email matches case-insensitively,
// password exactly.
type LocalUser struct {
	Email    string
	Password string
	Role     string
}

// DefaultAllowList are the built-in offline credentials.
func DefaultAllowList() []LocalUser {
	return []LocalUser{
		{Email: "admin@dsa.com", Password: "admin123", Role: "admin"},
		{Email: "student@dsa.com", Password: "student123", Role: "student"},
	}
}

// Source identifies which strategy in the chain authenticated the user.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local_fallback"
)

// Chain runs the ordered login strategies.
type Chain struct {
	oracle oracle.Oracle
	local  []LocalUser
	now    func() time.Time
	log    zerolog.Logger
}

// New builds a chain over the provider and allow-list.
func New(o oracle.Oracle, local []LocalUser, log zerolog.Logger) *Chain {
	return &Chain{
		oracle: o,
		local:  local,
		now:    time.Now,
		log:    log.With().Str("component", "login_chain").Logger(),
	}
}

// WithClock overrides the chain's clock. Test hook.
func (c *Chain) WithClock(now func() time.Time) *Chain {
	c.now = now
	return c
}

// Login validates input, then tries the provider, then the allow-list.
// When both fail the provider's error is surfaced, not the allow-list
// miss: the caller should see why the real authority said no.
func (c *Chain) Login(ctx context.Context, email, password string) (*types.SessionRecord, Source, error) {
	if err := types.ValidateEmail(email); err != nil {
		return nil, "", skerrors.NewValidationError(err)
	}
	if err := types.ValidatePassword(password); err != nil {
		return nil, "", skerrors.NewValidationError(err)
	}

	rec, oracleErr := c.oracle.Login(ctx, email, password)
	if oracleErr == nil {
		return rec, SourceRemote, nil
	}
	c.log.Warn().Err(oracleErr).Msg("provider login failed, trying local allow-list")

	if local := c.matchLocal(email, password); local != nil {
		c.log.Info().Str("role", local.Role).Msg("local fallback credential accepted")
		return c.synthesize(local), SourceLocal, nil
	}
	return nil, "", fmt.Errorf("login: %w", oracleErr)
}

func (c *Chain) matchLocal(email, password string) *LocalUser {
	for i := range c.local {
		if strings.EqualFold(c.local[i].Email, email) && c.local[i].Password == password {
			return &c.local[i]
		}
	}
	return nil
}

// synthesize builds a session record for a locally authenticated user with
// a fresh unique id and default learning preferences.
func (c *Chain) synthesize(u *LocalUser) *types.SessionRecord {
	email := strings.ToLower(u.Email)
	username := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		username = email[:at]
	}
	role := u.Role
	if role != "" {
		role = strings.ToUpper(role[:1]) + role[1:]
	}
	now := c.now()
	return &types.SessionRecord{
		UserID:                "local-" + uuid.NewString(),
		Email:                 email,
		Username:              username,
		FullName:              role + " (offline)",
		LearningPace:          types.PaceMedium,
		DailyTimeLimitMinutes: 120,
		AdaptiveDifficulty:    true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}
