package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/protocol"
)

// nextEvent pops the next queued outbound event. Broadcasts are enqueued
// synchronously, so anything expected is already buffered.
func nextEvent(t *testing.T, c *connection) protocol.Event {
	t.Helper()
	select {
	case evt := <-c.out:
		return evt
	default:
		t.Fatalf("connection %s: no queued event", c.id)
		return protocol.Event{}
	}
}

func nextSnapshot(t *testing.T, c *connection) []string {
	t.Helper()
	evt := nextEvent(t, c)
	require.NotNil(t, evt.PresenceSnapshot, "expected presence_snapshot")
	return evt.PresenceSnapshot.Usernames
}

func TestPresenceAdmitBroadcasts(t *testing.T) {
	p := NewPresenceRegistry(NewMetrics())

	alice := newConnection("alice", 8)
	p.Admit(alice)
	assert.Equal(t, []string{"alice"}, nextSnapshot(t, alice))

	bob := newConnection("bob", 8)
	p.Admit(bob)

	// Both the existing and the new connection see the updated list.
	assert.Equal(t, []string{"alice", "bob"}, nextSnapshot(t, alice))
	assert.Equal(t, []string{"alice", "bob"}, nextSnapshot(t, bob))
	assert.Equal(t, 2, p.Count())
}

func TestPresenceEvictBroadcasts(t *testing.T) {
	p := NewPresenceRegistry(NewMetrics())

	alice := newConnection("alice", 8)
	bob := newConnection("bob", 8)
	p.Admit(alice)
	p.Admit(bob)
	_ = nextSnapshot(t, alice)
	_ = nextSnapshot(t, alice)
	_ = nextSnapshot(t, bob)

	p.Evict(bob.id)
	assert.Equal(t, []string{"alice"}, nextSnapshot(t, alice))
	assert.Equal(t, 1, p.Count())

	select {
	case <-bob.done:
	default:
		t.Fatal("eviction must close the connection's done channel")
	}

	// Evicting an unknown ID is a no-op.
	p.Evict("no-such-connection")
	assert.Equal(t, 1, p.Count())
}

func TestPresenceMultiDevice(t *testing.T) {
	p := NewPresenceRegistry(NewMetrics())

	first := newConnection("alice", 8)
	second := newConnection("alice", 8)
	p.Admit(first)
	p.Admit(second)

	// One snapshot entry per connection, not per user.
	assert.Equal(t, []string{"alice", "alice"}, p.Snapshot())
	assert.Len(t, p.ConnectionsFor("alice"), 2)
	assert.Empty(t, p.ConnectionsFor("bob"))

	p.Evict(first.id)
	assert.Equal(t, []string{"alice"}, p.Snapshot())
}

func TestPresenceDropsOnFullQueue(t *testing.T) {
	metrics := NewMetrics()
	p := NewPresenceRegistry(metrics)

	slow := newConnection("slow", 1)
	p.Admit(slow) // fills the queue with the admission snapshot

	fast := newConnection("fast", 8)
	p.Admit(fast) // broadcast to slow is dropped

	assert.Equal(t, int64(1), metrics.DeliveriesDropped.Load())
	assert.Equal(t, []string{"fast", "slow"}, nextSnapshot(t, fast))
}
