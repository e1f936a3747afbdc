package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/protocol"
)

// Error codes sent in error_response events during the handshake.
const (
	errCodeProtocol        = 1
	errCodeUnauthenticated = 2
	errCodeUnauthorized    = 3
	errCodeInternal        = 4
)

const authTimeout = 10 * time.Second

// StartChat starts the real-time plane listener.
func (s *Server) StartChat() error {
	var ln net.Listener
	var err error

	if s.cfg.TLSEnabled {
		cert, err := loadOrGenerateTLS(s.cfg)
		if err != nil {
			return fmt.Errorf("server: tls: %w", err)
		}
		tlsCfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS13,
		}
		ln, err = tls.Listen("tcp", s.cfg.ChatAddr, tlsCfg)
		if err != nil {
			return fmt.Errorf("server: listen chat: %w", err)
		}
	} else {
		ln, err = net.Listen("tcp", s.cfg.ChatAddr)
		if err != nil {
			return fmt.Errorf("server: listen chat: %w", err)
		}
	}
	s.chatLn = ln

	slog.Info("chat plane listening", "addr", s.cfg.ChatAddr, "tls", s.cfg.TLSEnabled)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					slog.Error("accept error", "err", err)
					continue
				}
			}
			go s.handleChatConn(conn)
		}
	}()

	return nil
}

// handleChatConn handles a single chat connection lifecycle:
// Connecting -> Authenticating -> Admitted -> Disconnected. Any handshake
// failure goes straight to Disconnected without admission.
func (s *Server) handleChatConn(netConn net.Conn) {
	defer func() { _ = netConn.Close() }()

	remoteAddr := netConn.RemoteAddr().String()
	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)
	defer s.metrics.ActiveConnections.Add(-1)
	slog.Debug("new chat connection", "remote", remoteAddr)

	// First event must be auth_request
	_ = netConn.SetReadDeadline(time.Now().Add(authTimeout))
	evt, err := protocol.ReadEvent(netConn)
	if err != nil {
		slog.Debug("handshake read failed", "remote", remoteAddr, "err", err)
		return
	}
	_ = netConn.SetReadDeadline(time.Time{}) // clear deadline

	if evt.AuthRequest == nil {
		sendError(netConn, errCodeProtocol, "first event must be auth_request")
		return
	}

	user, err := s.auth.Authenticate(evt.AuthRequest.SessionToken)
	if err != nil {
		s.metrics.FailedAuths.Add(1)
		switch {
		case errors.Is(err, ErrUnauthenticated):
			sendError(netConn, errCodeUnauthenticated, "no session token presented")
		case errors.Is(err, ErrUnauthorized):
			sendError(netConn, errCodeUnauthorized, "session not authorized")
		default:
			slog.Error("authentication error", "remote", remoteAddr, "err", err)
			sendError(netConn, errCodeInternal, "internal error")
		}
		return
	}
	s.metrics.SuccessfulAuths.Add(1)

	c := newConnection(user.Username, s.cfg.OutboundQueueSize)

	// Single writer per connection: everything outbound goes through c.out,
	// so a slow peer only ever stalls its own writer.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case out := <-c.out:
				if err := protocol.WriteEvent(netConn, &out); err != nil {
					slog.Debug("write failed", "connection", c.id, "err", err)
					_ = netConn.Close()
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	c.deliver(protocol.Event{AuthResponse: &protocol.AuthResponse{
		Username: user.Username,
		Role:     user.Role.String(),
		Warned:   user.Warned,
	}})

	if replay, err := s.history.Tail(s.cfg.HistoryReplayCount); err != nil {
		slog.Error("history replay failed", "connection", c.id, "err", err)
	} else {
		c.deliver(protocol.Event{HistoryReplay: &protocol.HistoryReplay{Messages: replay}})
		s.metrics.HistoryReplays.Add(1)
	}

	s.presence.Admit(c)
	slog.Info("client admitted", "user", user.Username, "connection", c.id, "remote", remoteAddr)

	defer func() {
		s.presence.Evict(c.id)
		<-writerDone
		s.metrics.TotalDisconnects.Add(1)
		slog.Info("client disconnected", "user", user.Username, "connection", c.id)
	}()

	for {
		evt, err := protocol.ReadEvent(netConn)
		if err != nil {
			return
		}
		switch {
		case evt.SendMessage != nil:
			reason, err := s.router.Send(c.id, evt.SendMessage.To, evt.SendMessage.Text)
			if err != nil {
				slog.Error("send failed", "user", user.Username, "err", err)
				continue
			}
			if reason != Accepted {
				// Fail closed and silent: the sender gets no error event.
				slog.Debug("message rejected", "user", user.Username, "reason", reason.String())
			}
		case evt.Ping != nil:
			c.deliver(protocol.Event{Pong: &protocol.Pong{}})
		default:
			slog.Debug("ignoring unexpected event", "connection", c.id)
		}
	}
}

func sendError(conn net.Conn, code int, msg string) {
	evt := &protocol.Event{ErrorResponse: &protocol.ErrorResponse{Code: code, Message: msg}}
	if err := protocol.WriteEvent(conn, evt); err != nil {
		slog.Debug("error write failed", "err", err)
	}
}
