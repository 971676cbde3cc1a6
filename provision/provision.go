package provision

import (
	"github.com/valyala/bytebufferpool"

	"webhooks.cc/zzz/request"
	"webhooks.cc/zzz/response"
)

// Limits bounds the sizes of a Provision's reusable buffers. It mirrors the
// relevant fields of config.Config without importing that package, keeping
// provision usable independent of the viper/cobra config stack.
type Limits struct {
	ConnectionArenaBytesRetain int
	ListRecvBytesRetain        int
	CaptureCountMax            int
	QueryCountMax              int
}

// Provision is the per-connection resource bundle from spec.md §3: a
// growable recv buffer, a scoped arena, a fixed-capacity capture array, a
// bounded query map, a Request, and a Response. Exactly one connection task
// owns a Provision between Borrow and Release.
type Provision struct {
	Recv    *bytebufferpool.ByteBuffer
	Scratch *bytebufferpool.ByteBuffer // header/response-line assembly buffer
	Arena   Arena

	Captures *CaptureList
	Queries  *QueryMap

	Request  request.Request
	Response response.Response

	Initialized bool

	limits Limits
}

// newProvision constructs a zero-valued Provision sized per limits. Pool
// calls this lazily on first borrow past its free list, per spec.md §3's
// "created lazily on first borrow".
func newProvision(limits Limits) *Provision {
	return &Provision{
		Recv:     bytebufferpool.Get(),
		Scratch:  bytebufferpool.Get(),
		Captures: NewCaptureList(limits.CaptureCountMax),
		Queries:  NewQueryMap(limits.QueryCountMax),
		limits:   limits,
	}
}

// init performs one-time setup on first borrow.
func (p *Provision) init() {
	if p.Initialized {
		return
	}
	p.Response.Reset()
	p.Initialized = true
}

// release resets a Provision for reuse, per spec.md §3's retention
// invariant: arena retained at connection_arena_bytes_retain, recv buffer
// shrunk to at most list_recv_bytes_retain, request/response/queries
// cleared. A Provision going back to the pool's free list has no next
// peer to carry bytes forward to, so it discards the whole recv buffer.
func (p *Provision) release() {
	p.Recycle(len(p.Recv.B))
}

// Recycle clears request/response/queries/captures and shrinks the recv and
// scratch buffers back toward their retain thresholds, without touching
// pool membership. The connection engine calls this between requests on a
// single kept-alive connection, where the same Provision (and in
// particular the same Arena) must stay borrowed across requests — only
// Pool.Release returns it to the free list.
//
// consumed is the number of leading bytes of the recv buffer belonging to
// the request just finished; any bytes beyond it already belong to a
// pipelined next request (read in the same recv() call) and are slid to
// the front instead of being discarded.
func (p *Provision) Recycle(consumed int) {
	p.Request.Reset()
	p.Response.Reset()
	p.Queries.Reset()
	p.Captures.Reset()
	p.Arena.Reset(p.limits.ConnectionArenaBytesRetain)

	if consumed > 0 {
		p.Recv.B = append(p.Recv.B[:0], p.Recv.B[consumed:]...)
	}
	if cap(p.Recv.B) > p.limits.ListRecvBytesRetain && len(p.Recv.B) <= p.limits.ListRecvBytesRetain {
		fresh := bytebufferpool.Get()
		_, _ = fresh.Write(p.Recv.B)
		bytebufferpool.Put(p.Recv)
		p.Recv = fresh
	}

	if cap(p.Scratch.B) > p.limits.ListRecvBytesRetain {
		bytebufferpool.Put(p.Scratch)
		p.Scratch = bytebufferpool.Get()
	} else {
		p.Scratch.Reset()
	}
}
