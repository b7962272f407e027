package creds

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	skerrors "github.com/dsalearn/sessionkit/internal/errors"
	"github.com/dsalearn/sessionkit/internal/types"
)

// stubOracle implements oracle.Oracle with canned login behavior.
type stubOracle struct {
	rec    *types.SessionRecord
	err    error
	calls  int
	events chan types.AuthEvent
}

func (s *stubOracle) Login(ctx context.Context, email, password string) (*types.SessionRecord, error) {
	s.calls++
	return s.rec, s.err
}
func (s *stubOracle) Logout(ctx context.Context) error { return nil }
func (s *stubOracle) GetCurrentUser(ctx context.Context) (*types.SessionRecord, error) {
	return nil, nil
}
func (s *stubOracle) UpdateUser(ctx context.Context, patch types.ProfilePatch) error { return nil }
func (s *stubOracle) AuthEvents() <-chan types.AuthEvent                             { return s.events }

func TestValidationShortCircuits(t *testing.T) {
	t.Parallel()
	o := &stubOracle{}
	c := New(o, DefaultAllowList(), zerolog.Nop())

	for _, tc := range []struct{ email, password string }{
		{"not-an-email", "admin123"},
		{"admin@dsa.com", "short"},
	} {
		_, _, err := c.Login(context.Background(), tc.email, tc.password)
		if err == nil {
			t.Fatalf("expected validation error for %q/%q", tc.email, tc.password)
		}
		if skerrors.KindOf(err) != skerrors.KindValidation {
			t.Fatalf("kind = %v, want Validation", skerrors.KindOf(err))
		}
	}
	if o.calls != 0 {
		t.Fatalf("oracle called %d times before validation passed", o.calls)
	}
}

func TestOracleWins(t *testing.T) {
	t.Parallel()
	remote := &types.SessionRecord{UserID: "remote-1", Email: "admin@dsa.com"}
	c := New(&stubOracle{rec: remote}, DefaultAllowList(), zerolog.Nop())

	rec, src, err := c.Login(context.Background(), "admin@dsa.com", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.UserID != "remote-1" {
		t.Fatalf("expected the oracle's record, got %+v", rec)
	}
	if src != SourceRemote {
		t.Fatalf("source = %q, want %q", src, SourceRemote)
	}
}

func TestLocalFallbackOnOracleFailure(t *testing.T) {
	t.Parallel()
	c := New(&stubOracle{err: errors.New("connection refused")}, DefaultAllowList(), zerolog.Nop())

	rec, src, err := c.Login(context.Background(), "ADMIN@DSA.COM", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.HasPrefix(rec.UserID, "local-") {
		t.Fatalf("expected synthesized id, got %q", rec.UserID)
	}
	if src != SourceLocal {
		t.Fatalf("source = %q, want %q", src, SourceLocal)
	}
	if rec.Email != "admin@dsa.com" || rec.Username != "admin" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.LearningPace != types.PaceMedium || rec.DailyTimeLimitMinutes != 120 || !rec.AdaptiveDifficulty {
		t.Fatalf("default preferences not applied: %+v", rec)
	}
	if !rec.Valid() {
		t.Fatal("synthesized record must be publishable")
	}
}

func TestPasswordMatchedExactly(t *testing.T) {
	t.Parallel()
	oracleErr := errors.New("connection refused")
	c := New(&stubOracle{err: oracleErr}, DefaultAllowList(), zerolog.Nop())

	_, _, err := c.Login(context.Background(), "admin@dsa.com", "ADMIN123")
	if err == nil {
		t.Fatal("case-differing password must not match")
	}
	if !errors.Is(err, oracleErr) {
		t.Fatalf("expected the original oracle error, got %v", err)
	}
}

func TestOracleErrorSurfacedWhenNoLocalMatch(t *testing.T) {
	t.Parallel()
	oracleErr := errors.New("dial tcp: connection refused")
	c := New(&stubOracle{err: oracleErr}, DefaultAllowList(), zerolog.Nop())

	_, _, err := c.Login(context.Background(), "stranger@dsa.com", "hunter22")
	if !errors.Is(err, oracleErr) {
		t.Fatalf("expected oracle error surfaced, got %v", err)
	}
}

func TestSynthesizedIDsUnique(t *testing.T) {
	t.Parallel()
	c := New(&stubOracle{err: errors.New("down")}, DefaultAllowList(), zerolog.Nop())
	a, _, err := c.Login(context.Background(), "admin@dsa.com", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	b, _, err := c.Login(context.Background(), "admin@dsa.com", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if a.UserID == b.UserID {
		t.Fatalf("ids must be unique, both %q", a.UserID)
	}
}
