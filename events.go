package sessionkit

import (
	"sync"

	"github.com/dsalearn/sessionkit/internal/types"
)

// SessionHandler receives session-changed events. A nil record means
// "signed out — tear down all per-user state".
type SessionHandler func(*SessionRecord)

// notifier fans session-changed events out to subscribers from its own
// goroutine. Handlers therefore never run on the engine's stack and may
// call back into engine operations without re-entrancy hazards.
type notifier struct {
	mu   sync.Mutex
	subs []SessionHandler

	ch   chan *types.SessionRecord
	done chan struct{}
	wg   sync.WaitGroup
}

func newNotifier() *notifier {
	n := &notifier{
		ch:   make(chan *types.SessionRecord, 16),
		done: make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *notifier) subscribe(fn SessionHandler) {
	n.mu.Lock()
	n.subs = append(n.subs, fn)
	n.mu.Unlock()
}

// publish queues the snapshot for delivery. Delivery order matches
// publication order; the engine only publishes under its own lock.
func (n *notifier) publish(rec *types.SessionRecord) {
	select {
	case <-n.done:
	case n.ch <- rec:
	}
}

func (n *notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case rec := <-n.ch:
			n.deliver(rec)
		case <-n.done:
			// Flush anything already queued so a logout event is never lost.
			for {
				select {
				case rec := <-n.ch:
					n.deliver(rec)
				default:
					return
				}
			}
		}
	}
}

func (n *notifier) deliver(rec *types.SessionRecord) {
	n.mu.Lock()
	subs := make([]SessionHandler, len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()
	for _, fn := range subs {
		fn(rec)
	}
}

// stop ends delivery after flushing queued events. Idempotent via the
// engine's close guard.
func (n *notifier) stop() {
	close(n.done)
	n.wg.Wait()
}
