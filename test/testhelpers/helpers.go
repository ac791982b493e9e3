// Package testhelpers provides common utilities and helper functions for
// testing the Chatterbox server.
//
// This package contains reusable test utilities that are shared across
// integration tests: starting test servers, making JSON requests against the
// REST surface, dialing the WebSocket endpoint, and reading typed events off
// a connection.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// PostJSON sends a JSON POST to the given URL and decodes the JSON response
// body into a generic map. It fails the test on transport or decode errors.
func PostJSON(t *testing.T, url string, payload any) (int, map[string]any) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response from %s: %v", url, err)
	}
	return resp.StatusCode, decoded
}

// GetJSON sends a GET to the given URL and decodes the JSON response body
// into a generic map.
func GetJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response from %s: %v", url, err)
	}
	return resp.StatusCode, decoded
}

// WebSocketURL converts an httptest server URL into the ws:// URL of the
// relay endpoint.
func WebSocketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// DialWebSocket opens a WebSocket connection to the relay endpoint with an
// Origin header the default configuration allows. The connection is closed
// automatically when the test finishes.
func DialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	header := http.Header{"Origin": {"http://localhost:3000"}}
	conn, resp, err := websocket.DefaultDialer.Dial(WebSocketURL(server), header)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// SendEvent writes one JSON event to the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, event map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(event); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}
}

// ReadEvent reads the next JSON event from the connection, failing the test
// if nothing arrives within the timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	var event map[string]any
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return event
}

// ReadEventOfType reads events until one with the wanted type arrives,
// skipping events of other types. Roster broadcasts and direct messages have
// no ordering guarantee between them, so tests must tolerate interleaving.
func ReadEventOfType(t *testing.T, conn *websocket.Conn, eventType string, timeout time.Duration) map[string]any {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for %q event", eventType)
		}
		event := ReadEvent(t, conn, remaining)
		if event["type"] == eventType {
			return event
		}
	}
}

// Roster extracts the user list from an online-users event.
func Roster(t *testing.T, event map[string]any) []string {
	t.Helper()

	raw, ok := event["users"].([]any)
	if !ok {
		t.Fatalf("Event %v has no users list", event)
	}
	users := make([]string, 0, len(raw))
	for _, u := range raw {
		name, ok := u.(string)
		if !ok {
			t.Fatalf("Non-string username in roster: %v", u)
		}
		users = append(users, name)
	}
	return users
}

// WaitForRoster reads online-users events until the roster equals want.
func WaitForRoster(t *testing.T, conn *websocket.Conn, want []string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for roster %v", want)
		}
		event := ReadEventOfType(t, conn, "online-users", remaining)
		if equalRosters(Roster(t, event), want) {
			return
		}
	}
}

func equalRosters(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}
