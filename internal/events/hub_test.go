package events_test

import (
	"testing"

	"camqueue/internal/events"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := events.NewHub()
	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Publish(events.Event{Type: events.TypeJobAdded, JobID: "j1", Index: 0})

	for name, ch := range map[string]<-chan events.Event{"a": a, "b": b} {
		select {
		case evt := <-ch:
			if evt.Type != events.TypeJobAdded || evt.JobID != "j1" {
				t.Fatalf("%s: unexpected event %#v", name, evt)
			}
			if evt.Timestamp.IsZero() {
				t.Fatalf("%s: expected timestamp to be stamped", name)
			}
		default:
			t.Fatalf("%s: expected buffered event", name)
		}
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	hub := events.NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer; the earliest events should be shed.
	for i := 0; i < 100; i++ {
		hub.Publish(events.Event{Type: events.TypeJobStatusChanged, Index: i})
	}

	first := <-ch
	if first.Index == 0 {
		t.Fatal("expected oldest event to have been dropped")
	}
	// Drain; the newest event must have survived.
	last := first
	for {
		select {
		case evt := <-ch:
			last = evt
		default:
			if last.Index != 99 {
				t.Fatalf("expected newest event retained, got index %d", last.Index)
			}
			return
		}
	}
}

func TestCancelClosesChannel(t *testing.T) {
	hub := events.NewHub()
	ch, cancel := hub.Subscribe()
	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Fatal("expected channel closed after cancel")
	}
	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.SubscriberCount())
	}
	hub.Publish(events.Event{Type: events.TypeQueueStarted, Index: -1})
}
