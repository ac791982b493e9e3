package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/chatterbox-app/server/internal/server"
	"github.com/chatterbox-app/server/test/testhelpers"
)

// TestHealthEndpointIntegration tests the health endpoint with the actual
// server routing configuration.
func TestHealthEndpointIntegration(t *testing.T) {
	ts := startRelay(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	contentType := resp.Header.Get("Content-Type")
	if contentType != "text/plain" {
		t.Errorf("Expected content type text/plain, got %s", contentType)
	}
}

// TestRestApprovalLifecycle walks the REST side of the approval flow on its own.
func TestRestApprovalLifecycle(t *testing.T) {
	ts := startRelay(t)

	status, body := testhelpers.GetJSON(t, ts.URL+"/check-approval?username=carol")
	if status != http.StatusOK || body["approved"] != false {
		t.Fatalf("Expected unapproved carol, got %d %v", status, body)
	}

	status, body = testhelpers.PostJSON(t, ts.URL+"/request-access",
		map[string]any{"username": "Carol", "password": "c", "location": "OR"})
	if status != http.StatusOK || body["status"] != "pending" {
		t.Fatalf("Unexpected request-access response: %d %v", status, body)
	}

	// The pending list includes the record as stored.
	resp, err := http.Get(ts.URL + "/pending-users")
	if err != nil {
		t.Fatalf("Failed to fetch pending users: %v", err)
	}
	defer resp.Body.Close()
	var pending []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
		t.Fatalf("Failed to decode pending users: %v", err)
	}
	found := false
	for _, record := range pending {
		if record["username"] == "Carol" {
			found = true
			if record["password"] != "c" {
				t.Errorf("Pending record stored with altered password: %v", record)
			}
		}
	}
	if !found {
		t.Fatalf("Carol missing from pending list: %v", pending)
	}

	status, body = testhelpers.PostJSON(t, ts.URL+"/approve-user", map[string]any{"username": "CAROL"})
	if status != http.StatusOK || body["message"] != "Carol approved." {
		t.Fatalf("Unexpected approve-user response: %d %v", status, body)
	}

	status, body = testhelpers.GetJSON(t, ts.URL+"/check-approval?username=Carol")
	if status != http.StatusOK || body["approved"] != true {
		t.Fatalf("Expected approved carol, got %d %v", status, body)
	}

	// Approving again reports the no-op rather than failing.
	status, body = testhelpers.PostJSON(t, ts.URL+"/approve-user", map[string]any{"username": "carol"})
	if status != http.StatusOK || body["message"] != "User not found in pending." {
		t.Fatalf("Unexpected second approval response: %d %v", status, body)
	}
}

// TestServerTimeouts tests that the production server factory applies proper
// timeout configuration.
func TestServerTimeouts(t *testing.T) {
	srv := server.CreateServer(":0", http.NewServeMux())

	if srv.ReadTimeout != 15*time.Second {
		t.Errorf("Expected 15s read timeout, got %s", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 15*time.Second {
		t.Errorf("Expected 15s write timeout, got %s", srv.WriteTimeout)
	}
	if srv.IdleTimeout != 60*time.Second {
		t.Errorf("Expected 60s idle timeout, got %s", srv.IdleTimeout)
	}
}
