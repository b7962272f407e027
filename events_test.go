package sessionkit

import (
	"testing"
	"time"

	"github.com/dsalearn/sessionkit/internal/types"
)

func TestNotifierDeliversInOrder(t *testing.T) {
	t.Parallel()
	n := newNotifier()
	defer n.stop()

	got := make(chan string, 8)
	n.subscribe(func(rec *SessionRecord) {
		if rec == nil {
			got <- ""
			return
		}
		got <- rec.UserID
	})

	n.publish(&types.SessionRecord{UserID: "a", Email: "a@dsa.com"})
	n.publish(&types.SessionRecord{UserID: "b", Email: "b@dsa.com"})
	n.publish(nil)

	want := []string{"a", "b", ""}
	for i, w := range want {
		select {
		case id := <-got:
			if id != w {
				t.Fatalf("event %d = %q, want %q", i, id, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestNotifierStopFlushesQueued(t *testing.T) {
	t.Parallel()
	n := newNotifier()

	delivered := make(chan struct{}, 4)
	n.subscribe(func(*SessionRecord) { delivered <- struct{}{} })

	n.publish(&types.SessionRecord{UserID: "a", Email: "a@dsa.com"})
	n.publish(nil)
	n.stop()

	for i := 0; i < 2; i++ {
		select {
		case <-delivered:
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d lost on stop", i)
		}
	}
}

func TestNotifierPublishAfterStopDoesNotBlock(t *testing.T) {
	t.Parallel()
	n := newNotifier()
	n.stop()

	done := make(chan struct{})
	go func() {
		n.publish(&types.SessionRecord{UserID: "a", Email: "a@dsa.com"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked after stop")
	}
}

func TestNotifierLateSubscriberMissesEarlierEvents(t *testing.T) {
	t.Parallel()
	n := newNotifier()
	defer n.stop()

	first := make(chan struct{}, 1)
	n.subscribe(func(*SessionRecord) { first <- struct{}{} })
	n.publish(&types.SessionRecord{UserID: "a", Email: "a@dsa.com"})
	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first subscriber not notified")
	}

	late := make(chan struct{}, 1)
	n.subscribe(func(*SessionRecord) { late <- struct{}{} })
	select {
	case <-late:
		t.Fatal("late subscriber received an event published before it joined")
	case <-time.After(50 * time.Millisecond):
	}
}
