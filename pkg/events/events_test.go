package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscriber) *Event {
	t.Helper()
	select {
	case ev := <-sub:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBrokerDelivers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Publish(&Event{Type: EventPageCreated, Scope: "group:1", PageID: "home"})

	ev := receive(t, sub)
	assert.Equal(t, EventPageCreated, ev.Type)
	assert.Equal(t, "group:1", ev.Scope)
	assert.Equal(t, "home", ev.PageID)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestBrokerFiltersByType(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	swaps := b.Subscribe(EventPagesSwapped)
	all := b.Subscribe()

	b.Publish(&Event{Type: EventPlacementAdded, Scope: "s"})
	b.Publish(&Event{Type: EventPagesSwapped, Scope: "s"})

	assert.Equal(t, EventPlacementAdded, receive(t, all).Type)
	assert.Equal(t, EventPagesSwapped, receive(t, all).Type)
	assert.Equal(t, EventPagesSwapped, receive(t, swaps).Type)

	select {
	case ev := <-swaps:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	assert.False(t, open)
}

func TestBrokerPublishNeverBlocks(t *testing.T) {
	b := NewBroker()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 150; i++ {
			b.Publish(&Event{Type: EventPageUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked without a running broker")
	}
	assert.Equal(t, uint64(50), b.Dropped())
}

func TestBrokerStopTwice(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()
	b.Stop()
	b.Publish(&Event{Type: EventScopeDeleted})
}
