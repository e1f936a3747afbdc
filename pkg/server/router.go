package server

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/history"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/moderation"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/protocol"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/rbac"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
)

// RejectReason classifies the outcome of a send attempt. The wire protocol
// stays silent on rejection; the reason exists so embedding code and tests
// can observe why a message was dropped.
type RejectReason int

const (
	Accepted RejectReason = iota
	RejectedUnknownSender
	RejectedEmptyText
	RejectedTextTooLong
	RejectedUnknownRecipient
	RejectedRole
)

func (r RejectReason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedUnknownSender:
		return "unknown_sender"
	case RejectedEmptyText:
		return "empty_text"
	case RejectedTextTooLong:
		return "text_too_long"
	case RejectedUnknownRecipient:
		return "unknown_recipient"
	case RejectedRole:
		return "role_insufficient"
	default:
		return "unknown"
	}
}

// Router validates, persists, and fans out direct messages.
type Router struct {
	store    store.DataStore
	history  history.Log
	presence *PresenceRegistry
	censor   *moderation.Censor
	metrics  *Metrics
	now      func() time.Time
}

// NewRouter creates a message router.
func NewRouter(st store.DataStore, log history.Log, presence *PresenceRegistry,
	censor *moderation.Censor, metrics *Metrics) *Router {
	return &Router{
		store:    st,
		history:  log,
		presence: presence,
		censor:   censor,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Send routes one direct message from the connection identified by
// senderConnectionID. Rejections change no state and deliver nothing.
// The sender's role is checked per message, not per connection, so a role
// downgrade takes effect on the next send attempt.
//
// A non-nil error means the durable append failed; the message was not
// delivered and the reason value is not meaningful.
func (r *Router) Send(senderConnectionID, to, text string) (RejectReason, error) {
	sender := r.presence.Get(senderConnectionID)
	if sender == nil {
		return r.rejected(RejectedUnknownSender), nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return r.rejected(RejectedEmptyText), nil
	}
	if utf8.RuneCountInString(text) > model.MessageMaxTextLength {
		return r.rejected(RejectedTextTooLong), nil
	}

	recipient, err := r.store.GetUser(to)
	if err != nil {
		return Accepted, fmt.Errorf("server: look up recipient: %w", err)
	}
	if recipient == nil {
		return r.rejected(RejectedUnknownRecipient), nil
	}

	from, err := r.store.GetUser(sender.username)
	if err != nil {
		return Accepted, fmt.Errorf("server: look up sender: %w", err)
	}
	if from == nil {
		return r.rejected(RejectedUnknownSender), nil
	}
	if !rbac.HasPermission(from.Role, model.PermSendDirectMessage) {
		return r.rejected(RejectedRole), nil
	}

	if censored, changed := r.censor.Apply(text); changed {
		r.metrics.MessagesCensored.Add(1)
		text = censored
	}

	msg := model.Message{
		ID:        uuid.NewString(),
		From:      from.Username,
		To:        recipient.Username,
		Text:      text,
		Timestamp: r.now(),
	}

	// Durable append first; nothing is delivered if this fails.
	if err := r.history.Append(&msg); err != nil {
		return Accepted, fmt.Errorf("server: persist message: %w", err)
	}

	r.fanOut(msg)
	r.metrics.MessagesSent.Add(1)
	return Accepted, nil
}

// fanOut delivers an accepted message to every connection of the recipient
// and of the sender (self-echo, keeps the sender's other devices in sync).
func (r *Router) fanOut(msg model.Message) {
	targets := make(map[string]*connection)
	for _, c := range r.presence.ConnectionsFor(msg.To) {
		targets[c.id] = c
	}
	for _, c := range r.presence.ConnectionsFor(msg.From) {
		targets[c.id] = c
	}

	evt := protocol.Event{MessageDelivered: &protocol.MessageDelivered{Message: msg}}
	for _, c := range targets {
		if !c.deliver(evt) {
			slog.Warn("message delivery dropped, outbound queue full",
				"connection", c.id, "user", c.username)
			r.metrics.DeliveriesDropped.Add(1)
		}
	}
}

func (r *Router) rejected(reason RejectReason) RejectReason {
	r.metrics.MessagesRejected.Add(1)
	return reason
}
