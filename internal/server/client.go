// Package server wraps each WebSocket connection in a Client that queues
// outbound frames for a dedicated write pump.
package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is the connection handle for one WebSocket peer. Send enqueues a
// frame without blocking; the write pump drains the queue onto the socket.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	addr   string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client for conn. Incoming frames larger than
// cfg.MaxMessageSize are rejected by the transport.
func NewClient(conn *websocket.Conn, addr string, cfg *Config, logger *slog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		conn:   conn,
		send:   make(chan []byte, cfg.SendQueueSize),
		addr:   addr,
		logger: logger.With("addr", addr),
	}
}

// Addr returns the remote address the client connected from.
func (c *Client) Addr() string {
	return c.addr
}

// Send queues payload for delivery. It returns ErrConnectionClosed after
// Close and ErrSendQueueFull when the peer is not keeping up.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close stops accepting frames. The write pump flushes what is already
// queued, sends a close frame and closes the socket. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// isClosed reports whether Close has been called.
func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// setupReadConnection configures the read deadline and the pong handler that extends it.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("set read deadline failed", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// readFrame blocks until the next data frame arrives.
func (c *Client) readFrame() ([]byte, error) {
	_, frame, err := c.conn.ReadMessage()
	return frame, err
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeSocket()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		if !ok {
			c.writeCloseMessage()
			return false
		}
		return c.writeTextMessage(message)
	case <-ticker.C:
		return c.writePing()
	}
}

func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("set write deadline failed", "error", err)
		return c.abort()
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("write failed", "error", err)
		}
		return c.abort()
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("set write deadline for ping failed", "error", err)
		return c.abort()
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("write ping failed", "error", err)
		}
		return c.abort()
	}
	return true
}

func (c *Client) writeCloseMessage() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("write close message failed", "error", err)
	}
}

// abort marks the client closed after a write failure so that later sends
// report ErrConnectionClosed, and stops the pump.
func (c *Client) abort() bool {
	_ = c.Close()
	return false
}

// closeSocket closes the underlying connection, which unblocks the reader.
func (c *Client) closeSocket() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("close connection failed", "error", err)
	}
}
