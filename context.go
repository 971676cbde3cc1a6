package zzz

import (
	"context"
	"net"

	"github.com/google/uuid"

	"webhooks.cc/zzz/provision"
	"webhooks.cc/zzz/request"
	"webhooks.cc/zzz/sse"
	"webhooks.cc/zzz/transport"
)

// Context is the per-request runtime handle a Handler or Middleware
// receives. It exposes the borrowed Provision's request, response-building
// helpers, captures and query map, and the escape hatch into SSE. A Context
// is valid only for the duration of the handler call that received it.
type Context struct {
	pr     *provision.Provision
	conn   transport.Conn
	pool   *provision.Pool
	remote net.Addr
	id     string

	detached bool // true once ToSSE hands the socket off
}

func newContext(pr *provision.Provision, conn transport.Conn, pool *provision.Pool) *Context {
	return &Context{
		pr:     pr,
		conn:   conn,
		pool:   pool,
		remote: conn.RemoteAddr(),
		id:     uuid.NewString(),
	}
}

// Request returns the parsed request for this call.
func (c *Context) Request() *request.Request { return &c.pr.Request }

// Arena returns the per-connection bump allocator, for building response
// bodies/headers that must outlive the handler call but not the request.
func (c *Context) Arena() *provision.Arena { return &c.pr.Arena }

// Captures returns the positional path-parameter captures the router
// filled while matching this request.
func (c *Context) Captures() *provision.CaptureList { return c.pr.Captures }

// Query looks up a query-string parameter by key. The value is returned as
// it appears in the URI; percent-escapes are not decoded.
func (c *Context) Query(key string) (string, bool) { return c.pr.Queries.Get(key) }

// RemoteAddr identifies the peer.
func (c *Context) RemoteAddr() net.Addr { return c.remote }

// RequestID is a per-request identifier, freshly generated for every request
// served (including each request on a kept-alive connection), suitable for
// log correlation.
func (c *Context) RequestID() string { return c.id }

// ToSSE upgrades the connection to a Server-Sent Events stream. After this
// call succeeds, the connection engine no longer owns the socket or the
// Provision: the returned SSE value is responsible for both, and the
// engine's own response/keep-alive handling for this request is skipped.
func (c *Context) ToSSE(ctx context.Context) (*sse.SSE, error) {
	s, err := sse.Upgrade(ctx, c.conn, &c.pr.Arena, func() { c.pool.Release(c.pr) })
	if err != nil {
		return nil, err
	}
	c.detached = true
	return s, nil
}
