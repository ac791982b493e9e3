// Package integration contains end-to-end tests for the Chatterbox server.
//
// These tests exercise the full access-approval and chat flow over real HTTP
// and WebSocket connections against the production routing and hub setup.
package integration

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatterbox-app/server/internal/server"
	"github.com/chatterbox-app/server/test/testhelpers"
)

var startHubOnce sync.Once

// startRelay boots the production router on a test listener. The hub event
// loop is global and started once for the whole package; tests use distinct
// usernames to stay independent.
func startRelay(t *testing.T) *httptest.Server {
	t.Helper()
	startHubOnce.Do(server.StartHub)
	ts := testhelpers.CreateTestServer(server.SetupRoutes())
	t.Cleanup(ts.Close)
	return ts
}

// TestAccessApprovalAndChatFlow walks the whole user journey: request access,
// wait for the approval push, join, watch the roster, and exchange a direct
// message.
func TestAccessApprovalAndChatFlow(t *testing.T) {
	ts := startRelay(t)

	// Alice requests access and waits on the approval screen.
	status, body := testhelpers.PostJSON(t, ts.URL+"/request-access",
		map[string]any{"username": "Alice", "password": "x", "location": "NY"})
	if status != 200 || body["status"] != "pending" {
		t.Fatalf("Unexpected request-access response: %d %v", status, body)
	}

	aliceConn := testhelpers.DialWebSocket(t, ts)
	testhelpers.SendEvent(t, aliceConn, map[string]any{"type": "pending-register", "username": "alice"})

	// Registration is asynchronous with respect to the approval call; give
	// the read pump a moment to process it before approving.
	time.Sleep(50 * time.Millisecond)

	// The administrator approves with different casing.
	status, body = testhelpers.PostJSON(t, ts.URL+"/approve-user", map[string]any{"username": "alice"})
	if status != 200 || body["message"] != "Alice approved." {
		t.Fatalf("Unexpected approve-user response: %d %v", status, body)
	}

	event := testhelpers.ReadEventOfType(t, aliceConn, "approved", 2*time.Second)
	if event["type"] != "approved" {
		t.Fatalf("Expected approved event, got %v", event)
	}

	status, body = testhelpers.GetJSON(t, ts.URL+"/check-approval?username=ALICE")
	if status != 200 || body["approved"] != true {
		t.Fatalf("Expected approval confirmed, got %d %v", status, body)
	}

	// Alice joins; the roster contains her display-cased name.
	testhelpers.SendEvent(t, aliceConn, map[string]any{"type": "join", "username": "alice"})
	testhelpers.WaitForRoster(t, aliceConn, []string{"Alice"}, 2*time.Second)

	// Bob gets approved out of band and joins on a second connection.
	testhelpers.PostJSON(t, ts.URL+"/request-access",
		map[string]any{"username": "Bob", "password": "y", "location": "LA"})
	testhelpers.PostJSON(t, ts.URL+"/approve-user", map[string]any{"username": "bob"})

	bobConn := testhelpers.DialWebSocket(t, ts)
	testhelpers.SendEvent(t, bobConn, map[string]any{"type": "join", "username": "bob"})

	// Both connections converge on the two-user roster.
	testhelpers.WaitForRoster(t, bobConn, []string{"Alice", "Bob"}, 2*time.Second)
	testhelpers.WaitForRoster(t, aliceConn, []string{"Alice", "Bob"}, 2*time.Second)

	// Alice sends Bob a direct message; the from field carries her display name.
	testhelpers.SendEvent(t, aliceConn, map[string]any{"type": "message", "to": "bob", "message": "hi"})
	event = testhelpers.ReadEventOfType(t, bobConn, "message", 2*time.Second)
	if event["from"] != "Alice" || event["message"] != "hi" {
		t.Fatalf("Unexpected direct message: %v", event)
	}

	// Bob disconnects; Alice sees the shrunken roster.
	bobConn.Close()
	testhelpers.WaitForRoster(t, aliceConn, []string{"Alice"}, 2*time.Second)
}

// TestJoinWithoutApproval verifies an unapproved join is refused in-band and
// the connection stays usable.
func TestJoinWithoutApproval(t *testing.T) {
	ts := startRelay(t)

	conn := testhelpers.DialWebSocket(t, ts)
	testhelpers.SendEvent(t, conn, map[string]any{"type": "join", "username": "gatecrasher"})

	event := testhelpers.ReadEventOfType(t, conn, "error", 2*time.Second)
	if event["message"] != "Not approved" {
		t.Fatalf("Expected Not approved error, got %v", event)
	}

	// The connection is still open: an approval and a retry succeed.
	testhelpers.PostJSON(t, ts.URL+"/request-access",
		map[string]any{"username": "Gatecrasher", "password": "z", "location": "TX"})
	testhelpers.PostJSON(t, ts.URL+"/approve-user", map[string]any{"username": "gatecrasher"})

	testhelpers.SendEvent(t, conn, map[string]any{"type": "join", "username": "gatecrasher"})
	event = testhelpers.ReadEventOfType(t, conn, "online-users", 2*time.Second)
	users := testhelpers.Roster(t, event)
	found := false
	for _, u := range users {
		if u == "Gatecrasher" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Expected Gatecrasher in roster, got %v", users)
	}
}

// TestMalformedEventsKeepConnectionOpen verifies that unparseable input is
// ignored without dropping the connection.
func TestMalformedEventsKeepConnectionOpen(t *testing.T) {
	ts := startRelay(t)

	conn := testhelpers.DialWebSocket(t, ts)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("this is not json")); err != nil {
		t.Fatalf("Failed to write raw frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"warp-drive"}`)); err != nil {
		t.Fatalf("Failed to write raw frame: %v", err)
	}

	// A valid event after the garbage still gets a reply.
	testhelpers.SendEvent(t, conn, map[string]any{"type": "join", "username": "nobody-here"})
	event := testhelpers.ReadEventOfType(t, conn, "error", 2*time.Second)
	if event["message"] != "Not approved" {
		t.Fatalf("Expected Not approved error, got %v", event)
	}
}

// TestMessageToOfflineRecipientIsDropped verifies the at-most-once model:
// no error comes back and nothing is queued.
func TestMessageToOfflineRecipientIsDropped(t *testing.T) {
	ts := startRelay(t)

	testhelpers.PostJSON(t, ts.URL+"/request-access",
		map[string]any{"username": "Sender", "password": "s", "location": "WA"})
	testhelpers.PostJSON(t, ts.URL+"/approve-user", map[string]any{"username": "sender"})

	conn := testhelpers.DialWebSocket(t, ts)
	testhelpers.SendEvent(t, conn, map[string]any{"type": "join", "username": "sender"})
	testhelpers.WaitForRoster(t, conn, []string{"Sender"}, 2*time.Second)

	testhelpers.SendEvent(t, conn, map[string]any{"type": "message", "to": "nobody", "message": "echo?"})

	// No error event, no echo; the next thing this connection observes is
	// silence until the read deadline.
	if err := conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var event map[string]any
	if err := conn.ReadJSON(&event); err == nil {
		t.Fatalf("Expected no event after message to offline user, got %v", event)
	}
}
