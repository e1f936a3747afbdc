// Package server implements the Blox Studios real-time server.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/history"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/moderation"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
)

// Dependencies holds external dependencies for the server.
// Server assumes ownership of Store and History and will Close() them on shutdown.
type Dependencies struct {
	Store   store.DataStore
	History history.Log
}

// Server is the main Blox Studios server: the real-time chat plane plus the
// HTTP login/admin surface and the metrics endpoint.
type Server struct {
	cfg      Config
	store    store.DataStore
	history  history.Log
	auth     *Authenticator
	presence *PresenceRegistry
	router   *Router
	metrics  *Metrics
	censor   *moderation.Censor

	chatLn     net.Listener
	webSrv     *http.Server
	metricsSrv *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Server instance.
func New(cfg Config, deps Dependencies) (*Server, error) {
	censor, err := moderation.New(cfg.BlockedWords, moderation.DefaultMask)
	if err != nil {
		return nil, fmt.Errorf("server: build censor: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	metrics := NewMetrics()
	presence := NewPresenceRegistry(metrics)
	return &Server{
		cfg:      cfg,
		store:    deps.Store,
		history:  deps.History,
		auth:     NewAuthenticator(deps.Store),
		presence: presence,
		router:   NewRouter(deps.Store, deps.History, presence, censor, metrics),
		metrics:  metrics,
		censor:   censor,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Presence returns the presence registry.
func (s *Server) Presence() *PresenceRegistry {
	return s.presence
}

// Router returns the message router.
func (s *Server) Router() *Router {
	return s.router
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}
