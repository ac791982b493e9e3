// Package server coordinates connection registration, the presence and
// approval-waiter tables, and roster broadcasts for the Chatterbox relay via
// the Hub type.
package server

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

// Hub manages all WebSocket client connections and the shared tables built on
// top of them: who is online (presence) and who is waiting for an approval
// decision (waiters). All table access is serialized through the hub mutex so
// no two connection handlers observe a half-updated table.
type Hub struct {
	registry   *Registry
	clients    map[*Client]bool
	presence   map[string]*Client
	waiters    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates and initializes a new Hub instance with an empty account
// registry and all necessary channels and tables. The returned Hub is ready
// to manage WebSocket connections once Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   NewRegistry(),
		clients:    make(map[*Client]bool),
		presence:   make(map[string]*Client),
		waiters:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Registry returns the hub's account registry, shared with the HTTP handlers.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	if message == nil {
		return false
	}

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	// Non-blocking: a slow or closed connection never stalls the caller.
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. This method should be called in a separate goroutine as it
// runs indefinitely.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()
			log.Printf("Client %s connected from %s. Total connections: %d", client.id, client.addr, clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.disconnectClient(client)
		}
	}
}

// disconnectClient removes a client from every table it appears in. If the
// client had joined, the remaining joined connections receive a fresh roster.
func (h *Hub) disconnectClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}

	delete(h.clients, client)
	client.closed = true
	clientCount := len(h.clients)

	// The presence table is keyed by normalized username but removal is
	// triggered by handle identity: another connection may have joined with
	// the same username in the meantime and must not be evicted.
	wasJoined := false
	if client.username != "" {
		uname := normalizeUsername(client.username)
		if h.presence[uname] == client {
			delete(h.presence, uname)
			wasJoined = true
		}
	}

	for uname, waiter := range h.waiters {
		if waiter == client {
			delete(h.waiters, uname)
		}
	}

	var payload []byte
	var targets []*Client
	if wasJoined {
		payload = encodeOnlineUsersEvent(h.rosterLocked())
		targets = h.joinedClientsLocked()
	}
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	log.Printf("Client %s disconnected from %s. Total connections: %d", client.id, client.addr, clientCount)

	for _, target := range targets {
		h.safeSend(target, payload)
	}
}

// RegisterWaiter records the connection currently waiting on an approval
// decision for the given username. A later registration for the same
// username wins.
func (h *Hub) RegisterWaiter(username string, client *Client) {
	uname := normalizeUsername(username)
	if uname == "" {
		return
	}

	h.mutex.Lock()
	h.waiters[uname] = client
	h.mutex.Unlock()

	log.Printf("Client %s waiting for approval of %q", client.id, uname)
}

// NotifyApproved pushes a single approved event to the waiter registered for
// the given username, if one is still connected. Delivery is best-effort;
// approval succeeds regardless.
func (h *Hub) NotifyApproved(username string) bool {
	uname := normalizeUsername(username)

	h.mutex.RLock()
	waiter := h.waiters[uname]
	h.mutex.RUnlock()

	if waiter == nil {
		return false
	}
	return h.safeSend(waiter, encodeApprovedEvent())
}

// Join places the client in the presence table under the given username and
// tags the connection with the stored display name. It requires the username
// to be approved; on refusal the presence table is untouched and ok is false.
// On success the returned roster includes the newly joined user, and every
// joined connection (including this one) receives a roster broadcast.
func (h *Hub) Join(username string, client *Client) (roster []string, ok bool) {
	record, approved := h.registry.ApprovedRecord(username)
	if !approved {
		return nil, false
	}

	uname := normalizeUsername(record.Username)

	h.mutex.Lock()
	// A connection re-joining under a new name abandons its old entry.
	if prev := normalizeUsername(client.username); prev != "" && prev != uname && h.presence[prev] == client {
		delete(h.presence, prev)
	}
	client.username = record.Username
	// A join for a username that is already online silently replaces the
	// prior entry; the displaced connection is not closed or notified.
	h.presence[uname] = client
	roster = h.rosterLocked()
	payload := encodeOnlineUsersEvent(roster)
	targets := h.joinedClientsLocked()
	h.mutex.Unlock()

	log.Printf("Client %s joined as %q. Online users: %d", client.id, record.Username, len(roster))

	// The joiner gets the roster directly first, then again via the broadcast
	// to every joined connection. Clients treat roster events as idempotent.
	h.safeSend(client, payload)
	for _, target := range targets {
		h.safeSend(target, payload)
	}
	return roster, true
}

// Route delivers a direct message to the named recipient if they are online.
// An offline recipient means the message is silently dropped: best-effort,
// at-most-once, no queueing.
func (h *Hub) Route(sender *Client, to, message string) {
	h.mutex.RLock()
	from := sender.username
	recipient := h.presence[normalizeUsername(to)]
	h.mutex.RUnlock()

	if from == "" {
		log.Printf("Client %s sent a message before joining; dropping", sender.id)
		return
	}
	if recipient == nil {
		return
	}

	h.safeSend(recipient, encodeDirectMessageEvent(from, message))
}

// Roster returns the display usernames of all currently joined connections,
// sorted case-insensitively.
func (h *Hub) Roster() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.rosterLocked()
}

func (h *Hub) rosterLocked() []string {
	users := make([]string, 0, len(h.presence))
	for _, client := range h.presence {
		users = append(users, client.username)
	}
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i]) < strings.ToLower(users[j])
	})
	return users
}

func (h *Hub) joinedClientsLocked() []*Client {
	targets := make([]*Client, 0, len(h.presence))
	for _, client := range h.presence {
		targets = append(targets, client)
	}
	return targets
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines
// to complete. It returns after all client connections are closed and
// goroutines have finished, or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

var hub = NewHub()

// GetHub returns the global hub instance for shutdown coordination
func GetHub() *Hub {
	return hub
}
