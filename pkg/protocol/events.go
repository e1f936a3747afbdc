package protocol

import "github.com/pyjavascript-microsoft/BloxStudios/pkg/model"

// Event wraps all real-time plane events.
type Event struct {
	// Only one of these fields should be set.
	AuthRequest      *AuthRequest      `json:"auth_request,omitempty"`
	AuthResponse     *AuthResponse     `json:"auth_response,omitempty"`
	PresenceSnapshot *PresenceSnapshot `json:"presence_snapshot,omitempty"`
	HistoryReplay    *HistoryReplay    `json:"history_replay,omitempty"`
	SendMessage      *SendMessage      `json:"send_message,omitempty"`
	MessageDelivered *MessageDelivered `json:"message_delivered,omitempty"`
	ErrorResponse    *ErrorResponse    `json:"error_response,omitempty"`
	Ping             *Ping             `json:"ping,omitempty"`
	Pong             *Pong             `json:"pong,omitempty"`
}

// ----- Handshake -----

// AuthRequest must be the first event on a connection. The session token is
// the opaque identifier issued at login.
type AuthRequest struct {
	SessionToken string `json:"session_token"`
}

type AuthResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Warned   bool   `json:"warned,omitempty"`
}

// ----- Presence -----

// PresenceSnapshot lists everyone currently connected. Usernames appear once
// per connection, so a user online from two devices appears twice.
type PresenceSnapshot struct {
	Usernames []string `json:"usernames"`
}

// ----- Messaging -----

type HistoryReplay struct {
	Messages []model.Message `json:"messages"`
}

type SendMessage struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type MessageDelivered struct {
	Message model.Message `json:"message"`
}

// ----- Control -----

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Ping struct{}

type Pong struct{}
