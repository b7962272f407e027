// Package oracle defines the remote identity provider as the engine
// consumes it. The provider's wire protocol, password handling, and token
// issuance live behind this interface; the engine only sees session
// records, absence, and classified errors.
package oracle

import (
	"context"

	"github.com/dsalearn/sessionkit/internal/types"
)

// Oracle is the remote session provider.
//
// GetCurrentUser returns (nil, nil) when the provider reports no active
// session, which is distinct from an error: absence is an answer, an error
// counts against the circuit breaker.
type Oracle interface {
	Login(ctx context.Context, email, password string) (*types.SessionRecord, error)
	Logout(ctx context.Context) error
	GetCurrentUser(ctx context.Context) (*types.SessionRecord, error)
	UpdateUser(ctx context.Context, patch types.ProfilePatch) error

	// AuthEvents delivers provider-initiated sign-in/sign-out events. The
	// engine drains this channel on its own goroutine so handlers never
	// re-enter engine operations from provider callbacks.
	AuthEvents() <-chan types.AuthEvent
}
