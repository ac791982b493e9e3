// Package server maintains the in-memory account registry: access requests
// awaiting an administrator decision and the set of approved accounts. All
// state is volatile and resets on restart.
package server

import (
	"errors"
	"strings"
	"sync"
)

// ErrMissingFields is returned when an access request omits a required field.
var ErrMissingFields = errors.New("missing fields")

// AccountRecord is a single access request or approved account. Username keeps
// its original casing for presentation; all lookups key on the trimmed,
// lowercased form. The password is stored exactly as submitted.
type AccountRecord struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Location string `json:"location"`
}

// Registry holds the pending and approved account sets. It is safe for
// concurrent use from HTTP handlers and connection sessions.
type Registry struct {
	mu       sync.RWMutex
	pending  []AccountRecord
	approved []AccountRecord
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// SubmitRequest records a new access request. Any prior pending or approved
// record for the same normalized username is removed first, so re-requesting
// access revokes an earlier approval until the user is approved again.
func (r *Registry) SubmitRequest(username, password, location string) error {
	if username == "" || password == "" || location == "" {
		return ErrMissingFields
	}

	uname := normalizeUsername(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = removeRecord(r.pending, uname)
	r.approved = removeRecord(r.approved, uname)

	r.pending = append(r.pending, AccountRecord{
		Username: strings.TrimSpace(username),
		Password: password,
		Location: location,
	})
	return nil
}

// Approve moves the pending record for the given username into the approved
// set and returns it. The second return value is false when no pending record
// exists; that is a reportable no-op, not an error.
func (r *Registry) Approve(username string) (AccountRecord, bool) {
	uname := normalizeUsername(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, record := range r.pending {
		if normalizeUsername(record.Username) != uname {
			continue
		}
		r.pending = append(r.pending[:i], r.pending[i+1:]...)
		r.approved = append(r.approved, record)
		return record, true
	}
	return AccountRecord{}, false
}

// IsApproved reports whether the given username has been approved.
func (r *Registry) IsApproved(username string) bool {
	_, ok := r.ApprovedRecord(username)
	return ok
}

// ApprovedRecord returns the approved record for the given username, if any.
// The stored record carries the display-cased username that joins are tagged with.
func (r *Registry) ApprovedRecord(username string) (AccountRecord, bool) {
	uname := normalizeUsername(username)
	if uname == "" {
		return AccountRecord{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, record := range r.approved {
		if normalizeUsername(record.Username) == uname {
			return record, true
		}
	}
	return AccountRecord{}, false
}

// Pending returns a snapshot of the pending set in submission order.
func (r *Registry) Pending() []AccountRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]AccountRecord(nil), r.pending...)
}

func removeRecord(records []AccountRecord, uname string) []AccountRecord {
	kept := records[:0]
	for _, record := range records {
		if normalizeUsername(record.Username) != uname {
			kept = append(kept, record)
		}
	}
	return kept
}

