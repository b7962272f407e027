// Package taskq provides the engine's background worker: a lightweight
// sharded queue that guarantees FIFO order per key while allowing
// parallelism across shards. The engine keys every job by user id, so all
// background work for one identity (revalidation, progress sync, profile
// propagation) runs in submission order.
//
// Contract: callers must not invoke Submit concurrently for the same key.
// FIFO ordering relies on that external serialisation.
package taskq

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	skerrors "github.com/dsalearn/sessionkit/internal/errors"
)

type queuedJob struct {
	ctx context.Context
	job Job
}

// Queue executes Jobs on worker goroutines partitioned by a stable hash of
// the key. FIFO ordering is preserved within a shard; jobs with different
// keys may run in parallel.
type Queue struct {
	cfg    Config
	queues []chan queuedJob // len == cfg.Shards

	done   chan struct{} // closed in Stop()
	closed uint32        // 0 running, 1 closed

	wg sync.WaitGroup
}

// New constructs the queue and starts its shard workers.
func New(cfg Config) *Queue {
	// Apply zero-value defaults.
	if cfg.Shards <= 0 {
		cfg.Shards = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 100 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * time.Second
	}

	q := &Queue{
		cfg:    cfg,
		queues: make([]chan queuedJob, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		q.queues[i] = ch
		q.wg.Add(1)
		go q.runWorker(i, ch)
	}
	return q
}

// Submit enqueues job for the shard derived from key.
//
//   - Returns nil on success.
//   - Returns ErrQueueClosed if the queue is stopped.
//   - Returns *QueueFullError (matching ErrQueueFull) if the shard is
//     still full after EnqueueTimeout.
//   - Returns ctx.Err() if the caller's context is cancelled first.
func (q *Queue) Submit(ctx context.Context, key string, job Job) error {
	// Reject work after Stop even if q.done is not closed yet.
	if atomic.LoadUint32(&q.closed) == 1 {
		return ErrQueueClosed
	}
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	qj := queuedJob{ctx: ctx, job: job}
	shard := q.shardFor(key)
	ch := q.queues[shard]

	timer := time.NewTimer(q.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- qj:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil

	case <-q.done: // Stop() may be called while waiting for space
		return ErrQueueClosed

	case <-ctx.Done():
		return ctx.Err()

	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{
			Shard:    shard,
			Length:   len(ch),
			Capacity: cap(ch),
		}
	}
}

// Barrier enqueues a no-op job on the shard for key and waits until it
// runs, ensuring all previously submitted jobs for that key have completed.
func (q *Queue) Barrier(ctx context.Context, key string) error {
	done := make(chan struct{})
	j := JobFunc(func(context.Context) error {
		close(done)
		return nil
	})
	if err := q.Submit(ctx, key, j); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop signals every worker to finish draining its current queue, waits
// for them to terminate, and returns. Idempotent and safe for concurrent use.
func (q *Queue) Stop() {
	if !atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		return // already closed
	}

	log.Debug().Int("shards", q.cfg.Shards).Msg("taskq: stopping, draining shards")
	close(q.done)
	q.wg.Wait()
	log.Debug().Msg("taskq: stopped, all queues drained")
}

// Close lets Queue satisfy io.Closer.
func (q *Queue) Close() error {
	q.Stop()
	return nil
}

// ------------------------- internals -------------------------

func (q *Queue) runWorker(idx int, ch <-chan queuedJob) {
	defer q.wg.Done()

	// Protect the queue from a crashing worker.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("shard", idx).Msg("taskq: worker panic")
		}
	}()

	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			if qj.job == nil {
				continue
			}

			// Honour caller context so a cancelled job doesn't stall the shard.
			select {
			case <-qj.ctx.Done():
				q.safeHandleError(qj.ctx.Err())
			default:
				q.runWithRetry(qj, label)
			}

			queueDepth.WithLabelValues(label).Set(float64(len(ch)))

		case <-q.done:
			// Drain remaining jobs, preserving FIFO, then exit.
			drained := 0
			for {
				select {
				case qj := <-ch:
					if qj.job != nil {
						_ = qj.job.Run(qj.ctx)
						drained++
					}
				default:
					if drained > 0 {
						log.Debug().Int("shard", idx).Int("jobs", drained).Msg("taskq: drained on stop")
					}
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// runWithRetry executes one job, retrying recoverable failures with
// exponential backoff up to MaxAttempts.
func (q *Queue) runWithRetry(qj queuedJob, label string) {
	attempts := 0
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = q.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = q.cfg.MaxInterval
	exp.Reset()

	for {
		start := time.Now()
		err := qj.job.Run(qj.ctx)
		runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

		if err == nil {
			return
		}
		if skerrors.IsIrrecoverable(err) {
			q.safeHandleError(err)
			return
		}
		if attempts >= q.cfg.MaxAttempts-1 {
			q.safeHandleError(err) // retries exhausted
			return
		}

		attempts++
		wait := exp.NextBackOff()
		select {
		case <-time.After(wait):
		case <-q.done:
			return
		case <-qj.ctx.Done():
			q.safeHandleError(qj.ctx.Err())
			return
		}
	}
}

func (q *Queue) safeHandleError(err error) {
	if err == nil || q.cfg.ErrorHandler == nil {
		return
	}
	func() {
		// Guard against panics in the user-supplied handler.
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("taskq: error handler panic")
			}
		}()
		q.cfg.ErrorHandler(err)
	}()
}

func (q *Queue) shardFor(key string) int {
	h := fnv.New32a() // fast and sufficient at our scale
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % q.cfg.Shards
}
