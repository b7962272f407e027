package sessionkit

import (
	"errors"

	skerrors "github.com/dsalearn/sessionkit/internal/errors"
	"github.com/dsalearn/sessionkit/internal/taskq"
)

// ErrNoSession is returned by operations that require a signed-in user.
var ErrNoSession = errors.New("no active session")

// ErrBackPressure is returned when the engine's background queue is full.
var ErrBackPressure = errors.New("back-pressure (queue full)")

// ErrCircuitOpen reports that the provider circuit is open and the call
// was not attempted. Recoverable in classification terms, but the circuit
// only closes on ForceReconnect.
var ErrCircuitOpen = errors.New("session provider circuit open")

// IsBackPressure reports whether err is a back-pressure error.
func IsBackPressure(err error) bool {
	return errors.Is(err, ErrBackPressure) || errors.Is(err, taskq.ErrQueueFull)
}

// IsValidationError reports whether err was rejected before any I/O. These
// are the errors a login form should show verbatim.
func IsValidationError(err error) bool {
	return err != nil && skerrors.KindOf(err) == skerrors.KindValidation
}
