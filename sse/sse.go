// Package sse implements the Server-Sent Events upgrade path from spec.md
// §4.6: once a handler calls Context.ToSSE, ownership of the socket passes
// out of the connection engine's request/response loop and into an SSE
// value that frames events until the peer disconnects or the owner closes
// it.
package sse

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"webhooks.cc/zzz/provision"
	"webhooks.cc/zzz/transport"
)

const handshake = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/event-stream\r\n" +
	"Cache-Control: no-cache\r\n" +
	"Connection: keep-alive\r\n\r\n"

// Event is a single Server-Sent Event.
type Event struct {
	Name string // optional SSE "event:" field
	ID   string // optional SSE "id:" field
	Data string // "data:" payload; multi-line payloads are split across
	// repeated "data:" fields per the SSE wire format.
}

// SSE owns a socket after upgrade, plus an arena for formatting event
// payloads. Per spec.md §3's SSE invariant, once constructed the connection
// engine no longer manages this socket; the SSE value is responsible for
// eventual Close, which also returns the owning Provision to its pool.
type SSE struct {
	conn  transport.Conn
	arena *provision.Arena

	mu      sync.Mutex
	closed  bool
	release func()
}

// Upgrade sends the SSE handshake response and returns an SSE value owning
// conn from this point on. release is called exactly once, on Close, and
// should return the connection's Provision to its pool.
func Upgrade(ctx context.Context, conn transport.Conn, arena *provision.Arena, release func()) (*SSE, error) {
	if err := conn.SendAll(ctx, []byte(handshake)); err != nil {
		return nil, err
	}
	return &SSE{conn: conn, arena: arena, release: release}, nil
}

// Send formats event and writes it to the socket. Per spec.md §4.6:
// "event:" and "id:" precede "data:" when supplied.
func (s *SSE) Send(ctx context.Context, event Event) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}

	frame := s.format(event)
	return s.conn.SendAll(ctx, frame)
}

func (s *SSE) format(event Event) []byte {
	var b strings.Builder
	if event.Name != "" {
		fmt.Fprintf(&b, "event: %s\r\n", event.Name)
	}
	if event.ID != "" {
		fmt.Fprintf(&b, "id: %s\r\n", event.ID)
	}
	for _, line := range strings.Split(event.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\r\n", line)
	}
	b.WriteString("\r\n")

	if s.arena == nil {
		return []byte(b.String())
	}
	return s.arena.AllocFrom([]byte(b.String()))
}

// SendKeepalive writes an SSE comment line, which real proxies and clients
// between this server and the subscriber treat as a no-op that resets their
// idle timeout — the server-side half of the keepalive-comment tolerance
// the teacher's own SSE client already implements (it skips lines starting
// with ':').
func (s *SSE) SendKeepalive(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	return s.conn.SendAll(ctx, []byte(": keepalive\r\n\r\n"))
}

// StartKeepalive spawns a goroutine that calls SendKeepalive every interval
// until ctx is canceled or a keepalive write fails (peer gone). Call the
// returned stop function to end it early; safe to call more than once.
func (s *SSE) StartKeepalive(ctx context.Context, interval time.Duration) (stop func()) {
	stopCh := make(chan struct{})
	var once sync.Once
	stop = func() { once.Do(func() { close(stopCh) }) }

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				if err := s.SendKeepalive(ctx); err != nil {
					return
				}
			}
		}
	}()

	return stop
}

// Close closes the underlying socket and releases the owning Provision.
// Safe to call more than once; only the first call has an effect.
func (s *SSE) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.conn.Close()
	if s.release != nil {
		s.release()
	}
	return err
}
