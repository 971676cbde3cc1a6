package sse

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhooks.cc/zzz/transport"
)

type fakeConn struct {
	mu     sync.Mutex
	sent   bytes.Buffer
	closed bool
}

func (c *fakeConn) Recv(ctx context.Context, buf []byte) (int, error) { return 0, transport.ErrClosed }

func (c *fakeConn) SendAll(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}
	c.sent.Write(data)
	return nil
}

func (c *fakeConn) DisableNagle() error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() net.Addr { return &net.TCPAddr{} }

func (c *fakeConn) written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent.String()
}

func TestUpgradeSendsHandshake(t *testing.T) {
	conn := &fakeConn{}
	s, err := Upgrade(context.Background(), conn, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, conn.written(), "HTTP/1.1 200 OK")
	assert.Contains(t, conn.written(), "Content-Type: text/event-stream")
	require.NoError(t, s.Close())
}

func TestSendFramesNameIDAndData(t *testing.T) {
	conn := &fakeConn{}
	s, err := Upgrade(context.Background(), conn, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), Event{Name: "tick", ID: "1", Data: "hello"}))

	out := conn.written()
	assert.Contains(t, out, "event: tick\r\n")
	assert.Contains(t, out, "id: 1\r\n")
	assert.Contains(t, out, "data: hello\r\n")
}

func TestSendSplitsMultilineData(t *testing.T) {
	conn := &fakeConn{}
	s, err := Upgrade(context.Background(), conn, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), Event{Data: "line1\nline2"}))

	out := conn.written()
	assert.Contains(t, out, "data: line1\r\n")
	assert.Contains(t, out, "data: line2\r\n")
}

func TestSendAfterCloseReturnsErrClosed(t *testing.T) {
	conn := &fakeConn{}
	s, err := Upgrade(context.Background(), conn, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Send(context.Background(), Event{Data: "x"})
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestCloseCallsReleaseExactlyOnce(t *testing.T) {
	conn := &fakeConn{}
	releases := 0
	s, err := Upgrade(context.Background(), conn, nil, func() { releases++ })
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, releases)
}

func TestStartKeepaliveWritesRepeatedly(t *testing.T) {
	conn := &fakeConn{}
	s, err := Upgrade(context.Background(), conn, nil, nil)
	require.NoError(t, err)

	stop := s.StartKeepalive(context.Background(), 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	stop()

	count := strings.Count(conn.written(), ": keepalive\r\n\r\n")
	assert.Greater(t, count, 1)
	require.NoError(t, s.Close())
}

func TestKeepaliveWritesComment(t *testing.T) {
	conn := &fakeConn{}
	s, err := Upgrade(context.Background(), conn, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.SendKeepalive(context.Background()))
	assert.Contains(t, conn.written(), ": keepalive\r\n\r\n")
}
