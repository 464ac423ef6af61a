// Package server runs one session per WebSocket connection: register,
// dispatch inbound packets by type, and unregister when the loop ends.
package server

import (
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"
)

type session struct {
	hub    *Hub
	client *Client
	logger *slog.Logger
	id     ID
}

func newSession(hub *Hub, client *Client) *session {
	return &session{
		hub:    hub,
		client: client,
		logger: client.logger,
	}
}

// run drives the session until the peer goes away or a transport error
// occurs. Cleanup is deferred so it runs on every exit path once the client
// has been registered.
func (s *session) run() {
	rec, err := s.hub.Register(s.client)
	if err != nil {
		s.logger.Info("registration refused", "error", err)
		_ = s.client.Close()
		return
	}
	s.id = rec.ID
	s.logger = s.logger.With("client_id", rec.ID.String())
	defer s.cleanup()

	err = s.sendPrivate(ConnectionEstablished{
		Type:     TypeConnectionEstablished,
		ClientID: rec.ID.String(),
		Username: rec.Name,
	})
	if err != nil {
		s.logger.Info("client gone before welcome", "error", err)
		return
	}

	s.client.setupReadConnection()
	for {
		frame, err := s.client.readFrame()
		if err != nil {
			s.logReadError(err)
			return
		}
		if err := s.handleFrame(frame); err != nil {
			s.logger.Info("session ended", "error", err)
			return
		}
	}
}

func (s *session) cleanup() {
	s.hub.Unregister(s.id)
	_ = s.client.Close()
	s.logger.Info("session closed")
}

// handleFrame dispatches one inbound frame. Malformed and unknown packets
// are logged and skipped; a returned error ends the session.
func (s *session) handleFrame(frame []byte) error {
	in, err := DecodeInbound(frame)
	if err != nil {
		s.logger.Warn("invalid message received", "error", err, "frame", string(frame))
		return nil
	}

	switch in.Type {
	case TypeChatMessage:
		return s.hub.Relay(s.id, in.Message)
	case TypeChangeUsername:
		return s.changeUsername(in.Username)
	default:
		s.logger.Warn("unknown message type", "type", in.Type)
		return nil
	}
}

func (s *session) changeUsername(name string) error {
	if err := ValidateUsername(name); err != nil {
		s.logger.Warn("username rejected", "requested", name, "error", err)
		return s.sendPrivate(UsernameRejected{
			Type:     TypeUsernameRejected,
			Username: name,
			Reason:   err.Error(),
		})
	}

	result, err := s.hub.Rename(s.id, name)
	if err != nil {
		return err
	}
	if !result.OK {
		return nil
	}

	return s.sendPrivate(UsernameConfirmation{
		Type:     TypeUsernameConfirmation,
		Username: result.NewName,
	})
}

// sendPrivate delivers a packet to this session's client only. A full
// queue drops the packet; a closed connection ends the session.
func (s *session) sendPrivate(packet any) error {
	payload, err := encodePacket(packet)
	if err != nil {
		s.logger.Error("build private packet failed", "error", err)
		return nil
	}

	err = s.client.Send(payload)
	if errors.Is(err, ErrSendQueueFull) {
		s.logger.Warn("private packet dropped", "error", err)
		return nil
	}
	return err
}

// logReadError logs why the read loop stopped.
func (s *session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		s.logger.Warn("message exceeded maximum size")
	case isPeerGone(err):
		s.logger.Info("client disconnected", "reason", err)
	case s.client.isClosed():
		s.logger.Info("connection closed by server", "reason", err)
	default:
		s.logger.Warn("read error", "error", err)
	}
}
