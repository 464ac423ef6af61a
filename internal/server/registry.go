// Package server tracks connected clients in a Registry keyed by a random
// per-connection identity.
package server

import (
	"sync"

	"github.com/google/uuid"
)

// ID identifies one connection for its whole lifetime. It is generated at
// registration and never reused.
type ID uuid.UUID

// NoID is the zero ID. Passed as the exclusion to broadcast, it excludes nobody.
var NoID ID

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Conn is the send side of a client connection as seen by the registry and
// the broadcaster. Send must not block; it returns ErrConnectionClosed once
// the peer is gone.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Record is one registered client.
type Record struct {
	ID   ID
	Conn Conn
	Name string
}

// Member is the part of a Record needed to deliver a message.
type Member struct {
	ID   ID
	Conn Conn
}

// Registry maps identities to registered clients. The registry holds the
// Conn without owning it; closing it is up to the caller that removed it.
type Registry struct {
	mu      sync.RWMutex
	clients map[ID]Record
	newID   func() ID
}

// NewRegistry creates an empty registry that assigns random v4 UUIDs.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[ID]Record),
		newID: func() ID {
			return ID(uuid.New())
		},
	}
}

// DefaultName derives the placeholder display name given to a new client.
func DefaultName(id ID) string {
	return "User_" + id.String()[:8]
}

// Add registers conn under a fresh identity with the default display name.
func (r *Registry) Add(conn Conn) Record {
	id := r.newID()
	rec := Record{ID: id, Conn: conn, Name: DefaultName(id)}

	r.mu.Lock()
	r.clients[id] = rec
	r.mu.Unlock()

	return rec
}

// Remove deletes id and returns the removed record. Removing an absent id
// is a no-op and reports false.
func (r *Registry) Remove(id ID) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.clients[id]
	if !ok {
		return Record{}, false
	}
	delete(r.clients, id)
	return rec, true
}

// Rename replaces the display name of id. It reports false and changes
// nothing when id is not registered.
func (r *Registry) Rename(id ID, name string) (oldName, newName string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.clients[id]
	if !ok {
		return "", "", false
	}
	oldName = rec.Name
	rec.Name = name
	r.clients[id] = rec
	return oldName, name, true
}

// Lookup returns the record registered under id.
func (r *Registry) Lookup(id ID) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.clients[id]
	return rec, ok
}

// Snapshot returns a point-in-time copy of the registered members. The copy
// stays valid while entries are removed from the registry.
func (r *Registry) Snapshot() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Member, 0, len(r.clients))
	for id, rec := range r.clients {
		members = append(members, Member{ID: id, Conn: rec.Conn})
	}
	return members
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}
