package taskq

import (
	"errors"
	"fmt"
)

// ErrQueueClosed is returned by Submit after Stop has been called.
var ErrQueueClosed = errors.New("taskq: queue closed")

// ErrQueueFull is the sentinel matched by errors.Is against *QueueFullError.
var ErrQueueFull = errors.New("taskq: queue full")

// QueueFullError reports a shard that stayed full past the enqueue timeout.
type QueueFullError struct {
	Shard    int
	Length   int
	Capacity int
}

// Error implements the error interface.
func (e *QueueFullError) Error() string {
	return fmt.Sprintf("taskq: shard %d full (%d/%d)", e.Shard, e.Length, e.Capacity)
}

// Is lets errors.Is(err, ErrQueueFull) match.
func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }
