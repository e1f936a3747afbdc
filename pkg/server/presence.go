package server

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/protocol"
)

// connection is one live, authenticated real-time endpoint. The username is
// resolved at admission and never changes for the connection's lifetime.
type connection struct {
	id       string
	username string
	out      chan protocol.Event // drained by the connection's writer goroutine
	done     chan struct{}       // closed on eviction to stop the writer
}

func newConnection(username string, queueSize int) *connection {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &connection{
		id:       uuid.NewString(),
		username: username,
		out:      make(chan protocol.Event, queueSize),
		done:     make(chan struct{}),
	}
}

// deliver enqueues an event without blocking. A full queue means the peer is
// too slow; the event is dropped for this connection only.
func (c *connection) deliver(evt protocol.Event) bool {
	select {
	case c.out <- evt:
		return true
	default:
		return false
	}
}

// PresenceRegistry tracks currently connected, authenticated real-time
// endpoints. Admission and eviction broadcast the full online-username list
// to every admitted connection.
type PresenceRegistry struct {
	mu      sync.RWMutex
	conns   map[string]*connection // connectionID -> connection
	metrics *Metrics
}

// NewPresenceRegistry creates an empty presence registry.
func NewPresenceRegistry(metrics *Metrics) *PresenceRegistry {
	return &PresenceRegistry{
		conns:   make(map[string]*connection),
		metrics: metrics,
	}
}

// Admit records a connection's presence and broadcasts the updated online
// list to all admitted connections, including the new one.
func (p *PresenceRegistry) Admit(c *connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[c.id] = c
	p.broadcastSnapshotLocked()
}

// Evict removes a connection, stops its writer, and broadcasts the updated
// online list to the remaining connections. No-op for unknown IDs.
func (p *PresenceRegistry) Evict(connectionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[connectionID]
	if !ok {
		return
	}
	delete(p.conns, connectionID)
	close(c.done)
	p.broadcastSnapshotLocked()
}

// Get returns the connection with the given ID, or nil.
func (p *PresenceRegistry) Get(connectionID string) *connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conns[connectionID]
}

// ConnectionsFor returns all live connections belonging to a username.
func (p *PresenceRegistry) ConnectionsFor(username string) []*connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var conns []*connection
	for _, c := range p.conns {
		if c.username == username {
			conns = append(conns, c)
		}
	}
	return conns
}

// Snapshot returns the current online usernames, sorted. Usernames appear
// once per connection: a user online from two devices is listed twice. This
// mirrors simultaneous multi-device presence rather than collapsing it.
func (p *PresenceRegistry) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *PresenceRegistry) snapshotLocked() []string {
	usernames := lo.MapToSlice(p.conns, func(_ string, c *connection) string {
		return c.username
	})
	sort.Strings(usernames)
	return usernames
}

// Connections returns all admitted connections.
func (p *PresenceRegistry) Connections() []*connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return lo.Values(p.conns)
}

// Count returns the number of admitted connections.
func (p *PresenceRegistry) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

func (p *PresenceRegistry) broadcastSnapshotLocked() {
	evt := protocol.Event{
		PresenceSnapshot: &protocol.PresenceSnapshot{Usernames: p.snapshotLocked()},
	}
	for _, c := range p.conns {
		if !c.deliver(evt) {
			slog.Warn("presence broadcast dropped, outbound queue full",
				"connection", c.id, "user", c.username)
			p.metrics.DeliveriesDropped.Add(1)
		}
	}
}
