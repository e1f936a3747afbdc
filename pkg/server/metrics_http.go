package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// StartMetricsHTTP serves /metrics (Prometheus text format) and /healthz on
// cfg.MetricsAddr. Disabled when the address is empty.
func (s *Server) StartMetricsHTTP() error {
	if s.cfg.MetricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	s.metricsSrv = &http.Server{
		Addr:              s.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("metrics endpoint listening", "addr", s.cfg.MetricsAddr)
	go func() {
		if err := s.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "err", err)
		}
	}()
	return nil
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.metrics.Snapshot()

	var b strings.Builder
	writeGauge := func(name, help string, v int64) {
		fmt.Fprintf(&b, "# HELP blox_%s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE blox_%s gauge\n", name)
		fmt.Fprintf(&b, "blox_%s %d\n", name, v)
	}
	writeCounter := func(name, help string, v int64) {
		fmt.Fprintf(&b, "# HELP blox_%s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE blox_%s counter\n", name)
		fmt.Fprintf(&b, "blox_%s %d\n", name, v)
	}

	writeGauge("uptime_seconds", "Server uptime in seconds", snap.UptimeSeconds)
	writeGauge("active_connections", "Currently connected chat clients", snap.ActiveConnections)
	writeCounter("connections_total", "Total chat connections accepted", snap.TotalConnections)
	writeCounter("auths_success_total", "Successful connection handshakes", snap.SuccessfulAuths)
	writeCounter("auths_failed_total", "Failed connection handshakes", snap.FailedAuths)
	writeCounter("disconnects_total", "Total client disconnects", snap.TotalDisconnects)
	writeCounter("messages_sent_total", "Direct messages accepted and persisted", snap.MessagesSent)
	writeCounter("messages_rejected_total", "Send attempts silently rejected", snap.MessagesRejected)
	writeCounter("messages_censored_total", "Accepted messages altered by the censor", snap.MessagesCensored)
	writeCounter("deliveries_dropped_total", "Deliveries dropped on full outbound queues", snap.DeliveriesDropped)
	writeCounter("history_replays_total", "History replays served on admission", snap.HistoryReplays)
	writeCounter("logins_success_total", "Successful API logins", snap.LoginSuccesses)
	writeCounter("logins_failed_total", "Failed API login attempts", snap.LoginFailures)
	writeCounter("admin_actions_total", "Admin mutations performed", snap.AdminActions)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}
