// Package server defines the sentinel errors shared by the hub, the
// connection handles and the session loop.
package server

import (
	"errors"
	"io"
	"strings"

	"github.com/gorilla/websocket"
)

var (
	// ErrConnectionClosed is returned by Send once the peer is gone. The
	// broadcaster evicts recipients that fail with this error.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrSendQueueFull is returned by Send when the outbound queue of a
	// slow peer is saturated. The frame is dropped for that peer only.
	ErrSendQueueFull = errors.New("send queue full")

	// ErrHubClosed is returned to sessions whose requests arrive after the
	// hub has shut down.
	ErrHubClosed = errors.New("hub closed")

	// ErrInvalidUsername is wrapped by ValidateUsername.
	ErrInvalidUsername = errors.New("invalid username")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}

// isPeerGone reports whether a read error means the peer closed the
// connection, as opposed to a protocol or transport fault.
func isPeerGone(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure) {
		return true
	}
	return isExpectedCloseError(err)
}
