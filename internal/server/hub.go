// Package server coordinates client registration, message broadcast, and
// connection cleanup for the relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Hub owns the client registry. Every registry mutation and every broadcast
// pass runs on the goroutine executing Run, so they never interleave.
// Sessions reach the hub through Register, Unregister, Relay and Rename.
type Hub struct {
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time

	register   chan registerRequest
	unregister chan unregisterRequest
	chat       chan chatRequest
	rename     chan renameRequest

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type registerRequest struct {
	conn  Conn
	reply chan Record
}

type unregisterRequest struct {
	id   ID
	done chan struct{}
}

type chatRequest struct {
	id   ID
	text string
	done chan struct{}
}

type renameRequest struct {
	id    ID
	name  string
	reply chan RenameResult
}

// RenameResult reports the outcome of a rename. OK is false when the client
// was no longer registered.
type RenameResult struct {
	OldName string
	NewName string
	OK      bool
}

// NewHub creates a Hub with an empty registry. Run must be started before
// sessions are served.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   NewRegistry(),
		logger:     logger,
		now:        time.Now,
		register:   make(chan registerRequest),
		unregister: make(chan unregisterRequest),
		chat:       make(chan chatRequest),
		rename:     make(chan renameRequest),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run processes hub requests until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)
	h.logger.Info("hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case req := <-h.register:
			req.reply <- h.handleRegister(req.conn)

		case req := <-h.unregister:
			h.drop(req.id, "disconnected")
			close(req.done)

		case req := <-h.chat:
			h.handleChat(req.id, req.text)
			close(req.done)

		case req := <-h.rename:
			req.reply <- h.handleRename(req.id, req.name)
		}
	}
}

// Register adds conn to the registry and announces the join to every
// member, the new one included.
func (h *Hub) Register(conn Conn) (Record, error) {
	req := registerRequest{conn: conn, reply: make(chan Record, 1)}
	select {
	case h.register <- req:
	case <-h.ctx.Done():
		return Record{}, ErrHubClosed
	}
	return <-req.reply, nil
}

// Unregister removes id and announces the departure. It is a no-op when id
// was already evicted or the hub has shut down.
func (h *Hub) Unregister(id ID) {
	req := unregisterRequest{id: id, done: make(chan struct{})}
	select {
	case h.unregister <- req:
		<-req.done
	case <-h.ctx.Done():
	}
}

// Relay broadcasts a chat message from id to every member, sender included.
func (h *Hub) Relay(id ID, text string) error {
	req := chatRequest{id: id, text: text, done: make(chan struct{})}
	select {
	case h.chat <- req:
	case <-h.ctx.Done():
		return ErrHubClosed
	}
	<-req.done
	return nil
}

// Rename changes the display name of id and announces it to every member.
// The caller is expected to have validated name.
func (h *Hub) Rename(id ID, name string) (RenameResult, error) {
	req := renameRequest{id: id, name: name, reply: make(chan RenameResult, 1)}
	select {
	case h.rename <- req:
	case <-h.ctx.Done():
		return RenameResult{}, ErrHubClosed
	}
	return <-req.reply, nil
}

// Serve starts the write pump and the session loop for c. The hub tracks
// both goroutines so Shutdown can wait for them.
func (h *Hub) Serve(c *Client) {
	if h.ctx.Err() != nil {
		_ = c.Close()
		c.closeSocket()
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		newSession(h, c).run()
	}()
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return h.registry.Len()
}

func (h *Hub) handleRegister(conn Conn) Record {
	rec := h.registry.Add(conn)
	h.logger.Info("client registered",
		"client_id", rec.ID.String(), "username", rec.Name, "clients", h.registry.Len())
	h.announce(rec.Name, EventJoined)
	return rec
}

func (h *Hub) handleChat(id ID, text string) {
	rec, ok := h.registry.Lookup(id)
	if !ok {
		h.logger.Debug("dropping chat message from unregistered client", "client_id", id.String())
		return
	}

	payload, err := encodePacket(ChatMessage{
		Type:      TypeChatMessage,
		Username:  rec.Name,
		Message:   text,
		Timestamp: h.timestamp(),
	})
	if err != nil {
		h.logger.Error("build chat message failed", "client_id", id.String(), "error", err)
		return
	}

	h.logger.Info("chat message", "client_id", id.String(), "username", rec.Name, "message", text)
	h.broadcast(payload, NoID)
}

func (h *Hub) handleRename(id ID, name string) RenameResult {
	oldName, newName, ok := h.registry.Rename(id, name)
	if !ok {
		h.logger.Debug("rename for unregistered client ignored", "client_id", id.String())
		return RenameResult{}
	}

	h.logger.Info("username changed", "client_id", id.String(), "old", oldName, "new", newName)

	payload, err := encodePacket(UsernameChanged{
		Type:        TypeUsernameChanged,
		OldUsername: oldName,
		NewUsername: newName,
		Timestamp:   h.timestamp(),
	})
	if err != nil {
		h.logger.Error("build username change failed", "client_id", id.String(), "error", err)
	} else {
		h.broadcast(payload, NoID)
	}

	return RenameResult{OldName: oldName, NewName: newName, OK: true}
}

// drop removes id from the registry, closes its connection and announces
// the departure. Only the first of session cleanup and eviction finds the
// record, so a departure is announced once.
func (h *Hub) drop(id ID, reason string) {
	rec, ok := h.registry.Remove(id)
	if !ok {
		return
	}

	if err := rec.Conn.Close(); err != nil {
		h.logger.Debug("close connection failed", "client_id", id.String(), "error", err)
	}
	h.logger.Info("client unregistered",
		"client_id", id.String(), "username", rec.Name, "reason", reason, "clients", h.registry.Len())
	h.announce(rec.Name, EventLeft)
}

func (h *Hub) timestamp() float64 {
	return epochSeconds(h.now())
}

// shutdownClients closes every registered connection without announcing
// departures, since every member is leaving.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	members := h.registry.Snapshot()
	for _, m := range members {
		h.registry.Remove(m.ID)
		if err := m.Conn.Close(); err != nil {
			h.logger.Debug("close connection failed", "client_id", m.ID.String(), "error", err)
		}
	}

	h.logger.Info("closed client connections", "count", len(members))
}

// Shutdown stops the hub, closes every client connection and waits for the
// session goroutines to finish or for timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some sessions may still be running")
		return context.DeadlineExceeded
	}
}
