package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/web"
)

// Run starts all server planes and blocks until a shutdown signal arrives.
func (s *Server) Run() error {
	defer func() {
		if err := s.history.Close(); err != nil {
			slog.Error("history close failed", "err", err)
		}
		if err := s.store.Close(); err != nil {
			slog.Error("store close failed", "err", err)
		}
	}()

	if err := EnsureSeedUsers(s.store); err != nil {
		return err
	}
	if s.cfg.UsersFile != "" {
		if err := LoadUsersFromYAML(s.store, s.cfg.UsersFile); err != nil {
			return err
		}
	}

	if err := s.StartChat(); err != nil {
		return err
	}

	s.webSrv = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           web.New(s.store, s.metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("http api listening", "addr", s.cfg.HTTPAddr)
	go func() {
		if err := s.webSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "err", err)
		}
	}()

	if err := s.StartMetricsHTTP(); err != nil {
		return err
	}
	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case <-s.ctx.Done():
	}

	s.Shutdown()
	return nil
}

// Shutdown stops all listeners and evicts every connection. Safe to call more
// than once.
func (s *Server) Shutdown() {
	s.cancel()

	if s.chatLn != nil {
		if err := s.chatLn.Close(); err != nil {
			slog.Debug("chat listener close", "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.webSrv != nil {
		if err := s.webSrv.Shutdown(ctx); err != nil {
			slog.Debug("http server shutdown", "err", err)
		}
	}
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Shutdown(ctx); err != nil {
			slog.Debug("metrics server shutdown", "err", err)
		}
	}

	for _, c := range s.presence.Connections() {
		s.presence.Evict(c.id)
	}

	s.metrics.LogSummary()
	slog.Info("server stopped")
}

// Addr returns the bound chat listener address, useful when ChatAddr uses
// port 0.
func (s *Server) Addr() (string, error) {
	if s.chatLn == nil {
		return "", fmt.Errorf("server: chat plane not started")
	}
	return s.chatLn.Addr().String(), nil
}
