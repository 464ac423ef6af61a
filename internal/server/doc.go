// Package server implements the WebSocket broadcast chat relay.
//
// A Hub owns the Registry of connected clients and runs every registration,
// rename and broadcast pass on a single goroutine. Each connection is served
// by a session that decodes inbound packets and forwards them to the hub,
// and by a Client whose write pump drains a bounded outbound queue. Clients
// whose connection is found closed during a broadcast are evicted after the
// pass and their departure is announced like an ordinary disconnect.
package server
