package zzz

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhooks.cc/zzz/config"
	"webhooks.cc/zzz/provision"
	"webhooks.cc/zzz/response"
	"webhooks.cc/zzz/transport"
)

// scriptConn feeds a fixed script of inbound bytes to Recv and records
// everything written via SendAll, simulating a peer that sends one or more
// pipelined requests then disconnects.
type scriptConn struct {
	in     *bytes.Buffer
	out    bytes.Buffer
	closed bool
}

func newScriptConn(script string) *scriptConn {
	return &scriptConn{in: bytes.NewBufferString(script)}
}

func (c *scriptConn) Recv(ctx context.Context, buf []byte) (int, error) {
	if c.in.Len() == 0 {
		return 0, transport.ErrClosed
	}
	return c.in.Read(buf)
}

func (c *scriptConn) SendAll(ctx context.Context, data []byte) error {
	c.out.Write(data)
	return nil
}

func (c *scriptConn) DisableNagle() error { return nil }

func (c *scriptConn) Close() error {
	c.closed = true
	return nil
}

func (c *scriptConn) RemoteAddr() net.Addr { return &net.TCPAddr{} }

func testLimits() provision.Limits {
	return provision.Limits{
		ConnectionArenaBytesRetain: 64,
		ListRecvBytesRetain:        64,
		CaptureCountMax:            8,
		QueryCountMax:              8,
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.SocketBufferBytes = 256
	cfg.RequestBytesMax = 1 << 16
	s := New(cfg)
	s.pool = provision.NewPool(testLimits(), nil)
	return s
}

func TestServeHelloWorld(t *testing.T) {
	s := testServer(t)
	require.NoError(t, s.Get("/", func(c *Context) response.Respond {
		return response.Respond{Status: response.StatusOK, Mime: "text/html", Body: []byte("Hello, World!")}
	}))

	conn := newScriptConn("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
	s.serveConnection(context.Background(), conn)

	out := conn.out.String()
	assert.Contains(t, out, "HTTP/1.1 200 OK")
	assert.Contains(t, out, "Content-Length: 13")
	assert.True(t, strings.HasSuffix(out, "Hello, World!"))
	assert.True(t, conn.closed)
}

func TestServeCapturesSlugAndQuery(t *testing.T) {
	s := testServer(t)
	var gotSlug, gotGreeting string
	require.NoError(t, s.Get("/hi/%s", func(c *Context) response.Respond {
		gotSlug = c.Captures().At(0).Str
		gotGreeting, _ = c.Query("greeting")
		return response.Respond{Status: response.StatusOK, Body: []byte("ok")}
	}))

	conn := newScriptConn("GET /hi/alice?greeting=Hello HTTP/1.1\r\nConnection: close\r\n\r\n")
	s.serveConnection(context.Background(), conn)

	assert.Equal(t, "alice", gotSlug)
	assert.Equal(t, "Hello", gotGreeting)
	assert.Contains(t, conn.out.String(), "HTTP/1.1 200 OK")
}

func TestServeMethodNotAllowed(t *testing.T) {
	s := testServer(t)
	require.NoError(t, s.Get("/kill", func(c *Context) response.Respond {
		return response.Respond{Status: response.StatusOK, Body: []byte("ok")}
	}))

	conn := newScriptConn("POST /kill HTTP/1.1\r\nConnection: close\r\n\r\n")
	s.serveConnection(context.Background(), conn)

	assert.Contains(t, conn.out.String(), "405")
}

func TestServeRouteNotFound(t *testing.T) {
	s := testServer(t)
	conn := newScriptConn("GET /nope HTTP/1.1\r\nConnection: close\r\n\r\n")
	s.serveConnection(context.Background(), conn)

	assert.Contains(t, conn.out.String(), "404")
}

func TestServeTooManyHeadersIsRejected(t *testing.T) {
	s := testServer(t)
	require.NoError(t, s.Get("/", func(c *Context) response.Respond {
		return response.Respond{Status: response.StatusOK, Body: []byte("ok")}
	}))

	var b strings.Builder
	b.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < 33; i++ {
		b.WriteString("X-Pad: v\r\n")
	}
	b.WriteString("\r\n")

	conn := newScriptConn(b.String())
	s.serveConnection(context.Background(), conn)

	assert.Empty(t, conn.out.String(), "parse-level errors drop the connection without a response")
	assert.True(t, conn.closed)
}

func TestServeKeepAliveReusesArenaAcrossRequests(t *testing.T) {
	s := testServer(t)
	var addrs []uintptr
	require.NoError(t, s.Get("/", func(c *Context) response.Respond {
		buf := c.Arena().Alloc(1)
		addrs = append(addrs, uintptr(unsafe.Pointer(&buf[0])))
		return response.Respond{Status: response.StatusOK, Body: []byte("ok")}
	}))

	script := "GET / HTTP/1.1\r\n\r\n" + "GET / HTTP/1.1\r\nConnection: close\r\n\r\n"
	conn := newScriptConn(script)
	s.serveConnection(context.Background(), conn)

	require.Len(t, addrs, 2)
	assert.Equal(t, addrs[0], addrs[1], "same connection's Arena should back both requests")
	assert.True(t, conn.closed)
}

func TestServeMissingStatusAbortsConnection(t *testing.T) {
	s := testServer(t)
	require.NoError(t, s.Get("/oops", func(c *Context) response.Respond {
		return response.Respond{Body: []byte("no status set")}
	}))

	conn := newScriptConn("GET /oops HTTP/1.1\r\n\r\n")
	s.serveConnection(context.Background(), conn)

	assert.Empty(t, conn.out.String(), "no bytes should be sent when a handler omits Status")
	assert.True(t, conn.closed)
}

func TestServeSSEUpgradeDetachesConnection(t *testing.T) {
	s := testServer(t)
	require.NoError(t, s.Get("/events", func(c *Context) response.Respond {
		sseConn, err := c.ToSSE(context.Background())
		require.NoError(t, err)
		require.NoError(t, sseConn.Close())
		return response.Respond{}
	}))

	conn := newScriptConn("GET /events HTTP/1.1\r\n\r\n")
	s.serveConnection(context.Background(), conn)

	assert.Contains(t, conn.out.String(), "text/event-stream")
	assert.True(t, conn.closed, "SSE Close should close the socket")
}
