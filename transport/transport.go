// Package transport defines the Socket/Listener abstraction the connection
// engine consumes (spec.md §6). The core never touches net.Conn or TLS
// handshake mechanics directly — it only calls Accept/Recv/SendAll/Close/
// DisableNagle, so a TLS-terminating transport can be swapped in without
// touching the engine (TLS mechanics themselves are out of scope; see
// spec.md §1 Non-goals).
package transport

import (
	"context"
	"errors"
	"net"
)

// ErrClosed is returned by Recv when the peer closed the connection
// cleanly, distinct from any other I/O error — spec.md §4.1 treats these
// two cases differently ("closed" exits quietly, anything else is logged).
var ErrClosed = errors.New("transport: connection closed")

// Conn is one accepted connection.
type Conn interface {
	// Recv reads into buf, returning the number of bytes read. It returns
	// ErrClosed (wrapped or bare, checked with errors.Is) on clean peer
	// close, or any other error on a socket failure.
	Recv(ctx context.Context, buf []byte) (int, error)

	// SendAll writes all of data, blocking until it either fully lands or
	// an error occurs partway through.
	SendAll(ctx context.Context, data []byte) error

	// DisableNagle turns off Nagle's algorithm on the underlying socket,
	// per spec.md §4.1's newly-accepted-socket policy.
	DisableNagle() error

	// Close closes the connection immediately.
	Close() error

	// RemoteAddr identifies the peer, for logging.
	RemoteAddr() net.Addr
}

// Listener accepts inbound connections.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
	Addr() net.Addr
}
