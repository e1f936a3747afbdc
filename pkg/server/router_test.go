package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/history"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/moderation"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
)

type routerFixture struct {
	store    *store.MemoryStore
	history  history.Log
	presence *PresenceRegistry
	metrics  *Metrics
	router   *Router
}

func newRouterFixture(t *testing.T, blockedWords []string) *routerFixture {
	t.Helper()

	st := store.NewMemory()
	t.Cleanup(func() { _ = st.Close() })
	hist, err := history.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })

	for _, u := range []model.User{
		{Username: "admin", Role: model.RoleAdmin},
		{Username: "alice", Role: model.RoleStaff},
		{Username: "bob", Role: model.RoleStaff},
		{Username: "carol", Role: model.RoleBasic},
	} {
		u := u
		require.NoError(t, st.CreateUser(&u))
	}

	censor, err := moderation.New(blockedWords, moderation.DefaultMask)
	require.NoError(t, err)

	metrics := NewMetrics()
	presence := NewPresenceRegistry(metrics)
	return &routerFixture{
		store:    st,
		history:  hist,
		presence: presence,
		metrics:  metrics,
		router:   NewRouter(st, hist, presence, censor, metrics),
	}
}

// admit registers a live connection and drains its admission snapshot along
// with the snapshots queued on every other connection.
func (f *routerFixture) admit(t *testing.T, username string) *connection {
	t.Helper()
	c := newConnection(username, 16)
	f.presence.Admit(c)
	for _, other := range f.presence.Connections() {
		drainEvents(other)
	}
	return c
}

func drainEvents(c *connection) {
	for {
		select {
		case <-c.out:
		default:
			return
		}
	}
}

func deliveredTexts(t *testing.T, c *connection) []string {
	t.Helper()
	var texts []string
	for {
		select {
		case evt := <-c.out:
			require.NotNil(t, evt.MessageDelivered, "expected message_delivered")
			texts = append(texts, evt.MessageDelivered.Message.Text)
		default:
			return texts
		}
	}
}

func TestRouterDelivery(t *testing.T) {
	f := newRouterFixture(t, nil)
	alice := f.admit(t, "alice")
	bob := f.admit(t, "bob")

	reason, err := f.router.Send(alice.id, "bob", "hello bob")
	require.NoError(t, err)
	require.Equal(t, Accepted, reason)

	// Recipient and sender (self-echo) each get exactly one copy.
	assert.Equal(t, []string{"hello bob"}, deliveredTexts(t, bob))
	assert.Equal(t, []string{"hello bob"}, deliveredTexts(t, alice))

	tail, err := f.history.Tail(10)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "alice", tail[0].From)
	assert.Equal(t, "bob", tail[0].To)
	assert.Equal(t, int64(1), f.metrics.MessagesSent.Load())
}

func TestRouterSelfMessage(t *testing.T) {
	f := newRouterFixture(t, nil)
	alice := f.admit(t, "alice")

	reason, err := f.router.Send(alice.id, "alice", "note to self")
	require.NoError(t, err)
	require.Equal(t, Accepted, reason)

	// Sender and recipient are the same connection: exactly one copy.
	assert.Equal(t, []string{"note to self"}, deliveredTexts(t, alice))
}

func TestRouterMultiDeviceFanOut(t *testing.T) {
	f := newRouterFixture(t, nil)
	alice := f.admit(t, "alice")
	bobPhone := f.admit(t, "bob")
	bobLaptop := f.admit(t, "bob")
	carol := f.admit(t, "carol")

	reason, err := f.router.Send(alice.id, "bob", "hi")
	require.NoError(t, err)
	require.Equal(t, Accepted, reason)

	assert.Len(t, deliveredTexts(t, bobPhone), 1)
	assert.Len(t, deliveredTexts(t, bobLaptop), 1)
	assert.Len(t, deliveredTexts(t, alice), 1)
	assert.Empty(t, deliveredTexts(t, carol), "bystanders must not see direct messages")
}

func TestRouterRejections(t *testing.T) {
	f := newRouterFixture(t, nil)
	alice := f.admit(t, "alice")
	carol := f.admit(t, "carol")

	tests := []struct {
		name   string
		connID string
		to     string
		text   string
		want   RejectReason
	}{
		{"unknown sender connection", "no-such-conn", "bob", "hi", RejectedUnknownSender},
		{"empty text", alice.id, "bob", "", RejectedEmptyText},
		{"whitespace only", alice.id, "bob", "   \t\n", RejectedEmptyText},
		{"text too long", alice.id, "bob", strings.Repeat("x", model.MessageMaxTextLength+1), RejectedTextTooLong},
		{"unknown recipient", alice.id, "ghost", "hi", RejectedUnknownRecipient},
		{"basic role sender", carol.id, "alice", "hi", RejectedRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, err := f.router.Send(tt.connID, tt.to, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reason)
		})
	}

	// Rejections persist and deliver nothing.
	tail, err := f.history.Tail(10)
	require.NoError(t, err)
	assert.Empty(t, tail)
	assert.Empty(t, deliveredTexts(t, alice))
	assert.Empty(t, deliveredTexts(t, carol))
	assert.Equal(t, int64(len(tests)), f.metrics.MessagesRejected.Load())
}

func TestRouterOfflineRecipientStillPersists(t *testing.T) {
	f := newRouterFixture(t, nil)
	alice := f.admit(t, "alice")

	// bob exists but has no live connection.
	reason, err := f.router.Send(alice.id, "bob", "see you later")
	require.NoError(t, err)
	require.Equal(t, Accepted, reason)

	tail, err := f.history.Tail(10)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, []string{"see you later"}, deliveredTexts(t, alice))
}

func TestRouterRoleCheckedPerMessage(t *testing.T) {
	f := newRouterFixture(t, nil)
	alice := f.admit(t, "alice")

	reason, err := f.router.Send(alice.id, "bob", "first")
	require.NoError(t, err)
	require.Equal(t, Accepted, reason)

	// Demotion takes effect on the very next send over the same connection.
	require.NoError(t, f.store.SetRole("alice", model.RoleBasic))
	reason, err = f.router.Send(alice.id, "bob", "second")
	require.NoError(t, err)
	assert.Equal(t, RejectedRole, reason)
}

func TestRouterCensorsBlockedWords(t *testing.T) {
	f := newRouterFixture(t, []string{"badger"})
	alice := f.admit(t, "alice")
	bob := f.admit(t, "bob")

	reason, err := f.router.Send(alice.id, "bob", "a badger appears")
	require.NoError(t, err)
	require.Equal(t, Accepted, reason)

	assert.Equal(t, []string{"a ****** appears"}, deliveredTexts(t, bob))
	assert.Equal(t, int64(1), f.metrics.MessagesCensored.Load())

	// The censored form is what gets persisted.
	tail, err := f.history.Tail(1)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "a ****** appears", tail[0].Text)
}

func TestRouterOrdering(t *testing.T) {
	f := newRouterFixture(t, nil)
	alice := f.admit(t, "alice")
	bob := f.admit(t, "bob")

	for _, text := range []string{"one", "two", "three"} {
		reason, err := f.router.Send(alice.id, "bob", text)
		require.NoError(t, err)
		require.Equal(t, Accepted, reason)
	}

	assert.Equal(t, []string{"one", "two", "three"}, deliveredTexts(t, bob))

	tail, err := f.history.Tail(10)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, "one", tail[0].Text)
	assert.Equal(t, "three", tail[2].Text)
}
