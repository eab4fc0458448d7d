package events

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()

	hub := NewHub(8, zaptest.NewLogger(t))
	defer hub.Close()

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.Publish(Event{Type: TypeOrderAccepted, Payload: "order-1"})

	select {
	case evt := <-ch:
		if evt.Type != TypeOrderAccepted {
			t.Errorf("expected order_accepted, got %s", evt.Type)
		}
		if evt.Payload != "order-1" {
			t.Errorf("expected payload order-1, got %v", evt.Payload)
		}
		if evt.Timestamp.IsZero() {
			t.Error("expected a publish timestamp to be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishFanOut(t *testing.T) {
	t.Parallel()

	hub := NewHub(8, zaptest.NewLogger(t))
	defer hub.Close()

	ch1, unsub1 := hub.Subscribe()
	defer unsub1()
	ch2, unsub2 := hub.Subscribe()
	defer unsub2()

	if hub.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", hub.SubscriberCount())
	}

	hub.Publish(Event{Type: TypeTradeResult})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Type != TypeTradeResult {
				t.Errorf("subscriber %d: expected trade_result, got %s", i, evt.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestPublishDropsOldestWhenFull(t *testing.T) {
	t.Parallel()

	hub := NewHub(2, zaptest.NewLogger(t))
	defer hub.Close()

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	// Overfill a 2-slot buffer with three events without draining; the
	// first one is dropped in favor of the newest.
	hub.Publish(Event{Type: TypeOrderAccepted, Payload: 1})
	hub.Publish(Event{Type: TypeOrderAccepted, Payload: 2})
	hub.Publish(Event{Type: TypeOrderAccepted, Payload: 3})

	first := <-ch
	second := <-ch
	if first.Payload != 2 || second.Payload != 3 {
		t.Errorf("expected payloads 2 and 3 after drop, got %v and %v", first.Payload, second.Payload)
	}

	select {
	case evt := <-ch:
		t.Errorf("expected an empty buffer, got %v", evt.Payload)
	default:
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	hub := NewHub(8, zaptest.NewLogger(t))
	defer hub.Close()

	ch, unsubscribe := hub.Subscribe()
	unsubscribe()

	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after unsubscribe, got %d", hub.SubscriberCount())
	}

	// The channel is closed, and a second unsubscribe is a no-op.
	if _, open := <-ch; open {
		t.Error("expected channel to be closed")
	}
	unsubscribe()
}

func TestClose(t *testing.T) {
	t.Parallel()

	hub := NewHub(8, zaptest.NewLogger(t))

	ch1, _ := hub.Subscribe()
	ch2, _ := hub.Subscribe()

	hub.Close()

	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", hub.SubscriberCount())
	}
	if _, open := <-ch1; open {
		t.Error("expected first channel to be closed")
	}
	if _, open := <-ch2; open {
		t.Error("expected second channel to be closed")
	}

	// Publishing to a closed hub is harmless.
	hub.Publish(Event{Type: TypeBreakerTripped})
}

func TestNewHubDefaultBuffer(t *testing.T) {
	t.Parallel()

	hub := NewHub(0, zaptest.NewLogger(t))
	defer hub.Close()

	if hub.buffer != 64 {
		t.Errorf("expected default buffer 64, got %d", hub.buffer)
	}
}
