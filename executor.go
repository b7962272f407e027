package sessionkit

import (
	"context"

	"github.com/dsalearn/sessionkit/internal/taskq"
)

// executor abstracts the internal async job runner used for background
// revalidation and fire-and-forget sync work.
type executor interface {
	Submit(context.Context, string, taskq.Job) error
	Stop()
}

// ProgressSyncer is the external progress-store collaborator notified
// after a successful login. Sync errors are logged, never surfaced.
type ProgressSyncer interface {
	Sync(ctx context.Context, userID string) error
}
