package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const (
	testOrigin  = "http://localhost:8765"
	readTimeout = 2 * time.Second
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConn records the frames delivered to it. When sendErr is set every
// Send fails with it.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	sendErr    error
	closed     bool
	closeCalls int
}

func (f *fakeConn) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}
	if f.closed {
		return ErrConnectionClosed
	}
	f.frames = append(f.frames, payload)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.closeCalls++
	return nil
}

func (f *fakeConn) failWith(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

// packets decodes every frame received so far.
func (f *fakeConn) packets(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]map[string]any, 0, len(f.frames))
	for _, frame := range f.frames {
		var packet map[string]any
		if err := json.Unmarshal(frame, &packet); err != nil {
			t.Fatalf("frame is not a JSON object: %v (%s)", err, frame)
		}
		out = append(out, packet)
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

// startHub runs a fresh hub for the duration of the test.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(discardLogger())
	go hub.Run()
	t.Cleanup(func() {
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Errorf("hub shutdown: %v", err)
		}
	})
	return hub
}

// startTestServer serves the full route set backed by a running hub.
func startTestServer(t *testing.T, customize func(cfg *Config)) (*Hub, *httptest.Server) {
	t.Helper()

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{testOrigin}
	if customize != nil {
		customize(cfg)
	}

	hub := startHub(t)
	srv := httptest.NewServer(SetupRoutes(hub, cfg, discardLogger()))
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// dial opens a WebSocket to srv with the given Origin header.
func dial(srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}
	conn, resp, err := dialer.Dial(wsURL(srv), headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// connectClient dials srv and consumes the client's own join event and its
// connection_established packet, which it returns.
func connectClient(t *testing.T, srv *httptest.Server) (*websocket.Conn, map[string]any) {
	t.Helper()

	conn, _, err := dial(srv, testOrigin)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	joined := expectPacket(t, conn, TypeUserEvent)
	welcome := expectPacket(t, conn, TypeConnectionEstablished)
	if joined["username"] != welcome["username"] || joined["event"] != string(EventJoined) {
		t.Fatalf("Expected own join event before welcome, got %v then %v", joined, welcome)
	}
	return conn, welcome
}

func readPacket(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var packet map[string]any
	if err := conn.ReadJSON(&packet); err != nil {
		t.Fatalf("Failed to read packet: %v", err)
	}
	return packet
}

// expectPacket reads the next packet and checks its type.
func expectPacket(t *testing.T, conn *websocket.Conn, packetType string) map[string]any {
	t.Helper()

	packet := readPacket(t, conn)
	if packet["type"] != packetType {
		t.Fatalf("Expected %s packet, got %v", packetType, packet)
	}
	return packet
}

// expectNoMessage asserts that nothing arrives on conn within timeout. A
// timed out gorilla connection cannot be read again, so this must be the
// last read on conn.
func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, message, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message, got %s", message)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("Expected read timeout, got %v", err)
	}
}

func sendPacket(t *testing.T, conn *websocket.Conn, packet any) {
	t.Helper()
	if err := conn.WriteJSON(packet); err != nil {
		t.Fatalf("Failed to send packet: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}
