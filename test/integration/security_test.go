package integration

import (
	"net/http"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/chatterbox-app/server/test/testhelpers"
)

// TestWebSocketRejectsDisallowedOrigin verifies the upgrade handshake is
// refused for origins outside the configured allow-list.
func TestWebSocketRejectsDisallowedOrigin(t *testing.T) {
	ts := startRelay(t)

	header := http.Header{"Origin": {"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(testhelpers.WebSocketURL(ts), header)
	if err == nil {
		conn.Close()
		t.Fatal("Expected handshake to fail for disallowed origin")
	}
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
		}
	}
}

// TestWebSocketRejectsMissingOrigin verifies a handshake without an Origin
// header is refused.
func TestWebSocketRejectsMissingOrigin(t *testing.T) {
	ts := startRelay(t)

	conn, resp, err := websocket.DefaultDialer.Dial(testhelpers.WebSocketURL(ts), nil)
	if err == nil {
		conn.Close()
		t.Fatal("Expected handshake to fail without an Origin header")
	}
	if resp != nil {
		resp.Body.Close()
	}
}

// TestWebSocketEndpointRejectsPost verifies the endpoint only accepts GET.
func TestWebSocketEndpointRejectsPost(t *testing.T) {
	ts := startRelay(t)

	resp, err := http.Post(ts.URL+"/ws", "application/json", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	testhelpers.AssertStatusCode(t, resp, http.StatusMethodNotAllowed)
}
