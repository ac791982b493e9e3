// Package server interprets inbound connection events. Each connection's
// events are processed one at a time by its read pump; the handlers here
// drive the registry, waiter table, presence table, and message routing.
package server

import (
	"encoding/json"
	"log"
)

// dispatchEvent parses one inbound event and routes it to the matching
// handler. Malformed or unknown events are logged and ignored; the connection
// stays open and no reply is sent.
func (h *Hub) dispatchEvent(client *Client, rawEvent []byte) {
	var event InboundEvent
	if err := json.Unmarshal(rawEvent, &event); err != nil {
		log.Printf("Invalid event from %s (%s): %v", client.addr, client.id, err)
		return
	}

	switch event.Type {
	case EventPendingRegister:
		h.handlePendingRegister(client, event)
	case EventJoin:
		h.handleJoin(client, event)
	case EventMessage:
		h.Route(client, event.To, event.Message)
	default:
		log.Printf("Unknown event type %q from %s; ignoring", event.Type, client.addr)
	}
}

// handlePendingRegister marks this connection as the one showing the
// "waiting for approval" screen for the given username.
func (h *Hub) handlePendingRegister(client *Client, event InboundEvent) {
	h.RegisterWaiter(event.Username, client)
}

// handleJoin attempts to place the connection in the presence table. A
// refused join answers with an in-band error event and leaves the connection
// open; on success Join itself answers with the roster and broadcasts it to
// every joined connection.
func (h *Hub) handleJoin(client *Client, event InboundEvent) {
	if _, ok := h.Join(event.Username, client); !ok {
		log.Printf("Client %s join as %q refused: not approved", client.id, event.Username)
		h.safeSend(client, encodeErrorEvent("Not approved"))
	}
}
