// Package server implements the core HTTP and WebSocket functionality for the
// Chatterbox relay: the access-approval REST surface, the in-memory account
// registry, online presence tracking, and direct message routing between
// persistent connections.
//
// The implementation is organized into specialized files for configuration,
// the registry, hub and presence management, per-connection sessions, routing,
// and HTTP handlers to keep the codebase maintainable and testable as the
// project grows.
package server
