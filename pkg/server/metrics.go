package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Connection counters
	TotalConnections  atomic.Int64 // lifetime chat connections accepted
	ActiveConnections atomic.Int64 // current active chat connections
	SuccessfulAuths   atomic.Int64 // successful connection handshakes
	FailedAuths       atomic.Int64 // failed connection handshakes
	TotalDisconnects  atomic.Int64 // total client disconnects (clean + unclean)

	// Messaging counters
	MessagesSent      atomic.Int64 // accepted and persisted direct messages
	MessagesRejected  atomic.Int64 // silently rejected send attempts
	MessagesCensored  atomic.Int64 // accepted messages altered by the censor
	DeliveriesDropped atomic.Int64 // per-connection deliveries dropped (queue full)
	HistoryReplays    atomic.Int64 // history replays served on admission

	// HTTP surface counters
	LoginSuccessCount atomic.Int64 // successful logins
	LoginFailureCount atomic.Int64 // failed login attempts
	AdminActionCount  atomic.Int64 // admin mutations (ban, warn, promote, delete, secret)
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// LoginSucceeded records a successful login.
func (m *Metrics) LoginSucceeded() { m.LoginSuccessCount.Add(1) }

// LoginFailed records a failed login attempt.
func (m *Metrics) LoginFailed() { m.LoginFailureCount.Add(1) }

// AdminAction records an admin mutation.
func (m *Metrics) AdminAction() { m.AdminActionCount.Add(1) }

// MetricsSnapshot is a point-in-time view of all metrics as a serializable struct.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	SuccessfulAuths   int64 `json:"successful_auths"`
	FailedAuths       int64 `json:"failed_auths"`
	TotalDisconnects  int64 `json:"total_disconnects"`

	MessagesSent      int64 `json:"messages_sent"`
	MessagesRejected  int64 `json:"messages_rejected"`
	MessagesCensored  int64 `json:"messages_censored"`
	DeliveriesDropped int64 `json:"deliveries_dropped"`
	HistoryReplays    int64 `json:"history_replays"`

	LoginSuccesses int64 `json:"login_successes"`
	LoginFailures  int64 `json:"login_failures"`
	AdminActions   int64 `json:"admin_actions"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:            uptime.Truncate(time.Second).String(),
		UptimeSeconds:     int64(uptime.Seconds()),
		ActiveConnections: m.ActiveConnections.Load(),
		TotalConnections:  m.TotalConnections.Load(),
		SuccessfulAuths:   m.SuccessfulAuths.Load(),
		FailedAuths:       m.FailedAuths.Load(),
		TotalDisconnects:  m.TotalDisconnects.Load(),
		MessagesSent:      m.MessagesSent.Load(),
		MessagesRejected:  m.MessagesRejected.Load(),
		MessagesCensored:  m.MessagesCensored.Load(),
		DeliveriesDropped: m.DeliveriesDropped.Load(),
		HistoryReplays:    m.HistoryReplays.Load(),
		LoginSuccesses:    m.LoginSuccessCount.Load(),
		LoginFailures:     m.LoginFailureCount.Load(),
		AdminActions:      m.AdminActionCount.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"messages_sent", s.MessagesSent,
		"messages_rejected", s.MessagesRejected,
		"deliveries_dropped", s.DeliveriesDropped,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
