// Package server defines the wire-level event types exchanged over persistent
// connections, plus utility helpers reused across client and hub logic.
package server

import (
	"encoding/json"
	"log"
	"strings"
)

// Event type tags carried in the "type" field of every connection event.
const (
	EventPendingRegister = "pending-register"
	EventJoin            = "join"
	EventMessage         = "message"
	EventApproved        = "approved"
	EventError           = "error"
	EventOnlineUsers     = "online-users"
)

// InboundEvent is the superset of fields a client may send. Which fields are
// meaningful depends on Type; unknown types are ignored by the session.
type InboundEvent struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	To       string `json:"to,omitempty"`
	Message  string `json:"message,omitempty"`
}

type approvedEvent struct {
	Type string `json:"type"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type onlineUsersEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

type directMessageEvent struct {
	Type    string `json:"type"`
	From    string `json:"from"`
	Message string `json:"message"`
}

func encodeApprovedEvent() []byte {
	return mustEncode(approvedEvent{Type: EventApproved})
}

func encodeErrorEvent(message string) []byte {
	return mustEncode(errorEvent{Type: EventError, Message: message})
}

func encodeOnlineUsersEvent(users []string) []byte {
	if users == nil {
		users = []string{}
	}
	return mustEncode(onlineUsersEvent{Type: EventOnlineUsers, Users: users})
}

func encodeDirectMessageEvent(from, message string) []byte {
	return mustEncode(directMessageEvent{Type: EventMessage, From: from, Message: message})
}

// mustEncode marshals outbound payloads built from plain structs; a failure
// here indicates a programming error, not bad client input.
func mustEncode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error encoding outbound event %T: %v", v, err)
		return nil
	}
	return data
}

// normalizeUsername produces the lookup key used by every table: whitespace
// trimmed, case folded to lowercase.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
