// Package server exposes HTTP handlers for the access-approval REST surface,
// WebSocket upgrades, health checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// accessRequest is the body of POST /request-access.
type accessRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Location string `json:"location"`
}

// approveRequest is the body of POST /approve-user.
type approveRequest struct {
	Username string `json:"username"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// RequestAccessHandler accepts a new access request and places it in the
// pending set. A repeat request replaces the prior one and revokes any
// earlier approval until the user is approved again.
func RequestAccessHandler(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	if err := hub.Registry().SubmitRequest(req.Username, req.Password, req.Location); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing fields"})
		return
	}

	// The submitted credential is deliberately kept out of the log.
	log.Printf("Access request from %q (location %q)", req.Username, req.Location)
	writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
}

// ApproveUserHandler moves a pending request into the approved set and pushes
// an approved event to the connection waiting on that decision, if any.
// Approving a username with no pending request is a reportable no-op.
func ApproveUserHandler(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	record, ok := hub.Registry().Approve(req.Username)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"message": "User not found in pending."})
		return
	}

	log.Printf("User %q approved (location %q)", record.Username, record.Location)

	if !hub.NotifyApproved(record.Username) {
		log.Printf("No waiter connection for %q; approval notification skipped", record.Username)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("%s approved.", record.Username)})
}

// CheckApprovalHandler reports whether the named user has been approved.
func CheckApprovalHandler(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if normalizeUsername(username) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing username"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"approved": hub.Registry().IsApproved(username)})
}

// PendingUsersHandler returns the pending set as stored, in submission order.
// Records include the plaintext password the user submitted; callers of this
// admin endpoint see credentials in the clear.
func PendingUsersHandler(w http.ResponseWriter, _ *http.Request) {
	pending := hub.Registry().Pending()
	if pending == nil {
		pending = []AccountRecord{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// WebSocketHandler handles WebSocket upgrade requests and manages client
// connections. It validates that the request uses the GET method, upgrades
// the HTTP connection to WebSocket, creates a new Client instance, and hands
// it to the hub, which launches the read/write pumps.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, hub, r.RemoteAddr)
	client.hub.register <- client
}

// HealthHandler provides a simple health check endpoint that returns server
// status as a plain text message.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chatterbox backend running!")
}
