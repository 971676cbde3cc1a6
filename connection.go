package zzz

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"webhooks.cc/zzz/provision"
	"webhooks.cc/zzz/request"
	"webhooks.cc/zzz/response"
	"webhooks.cc/zzz/router"
	"webhooks.cc/zzz/transport"
)

// headerScanMultiple sizes FindHeaderEnd's tail window as a multiple of the
// configured per-recv() chunk, wide enough to hold a realistic header block.
// Because the window spans several chunks, each call rescans trailing bytes
// that earlier calls already searched.
const headerScanMultiple = 8

// serveConnection drives one accepted connection through as many
// request/response cycles as keep-alive and the peer allow, per spec.md
// §4.1's state machine: recv -> parse -> route -> middleware -> respond ->
// keep-alive (loop) or close.
func (s *Server) serveConnection(ctx context.Context, conn transport.Conn) {
	pr, err := s.pool.Borrow(ctx)
	if err != nil {
		_ = conn.Close()
		return
	}

	log := s.log.WithField("remote", conn.RemoteAddr().String())

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("connection handler panicked")
			if s.sentryEnabled {
				sentry.CurrentHub().Recover(r)
			}
		}
	}()

	released := false
	closeConn := func() {
		if !released {
			s.pool.Release(pr)
			released = true
		}
		_ = conn.Close()
	}

	for {
		kind, detached, consumed := s.serveOnce(ctx, conn, pr, log)
		if detached {
			// Ownership of pr and conn passed to an SSE stream; this
			// connection task's job is done.
			return
		}
		if kind == KindSocketClosed {
			closeConn()
			return
		}
		switch kind {
		case KindOK, KindRouteNotFound, KindMethodNotAllowed, KindHandlerFailed:
			// A response was sent; keep-alive decides whether to loop.
		default:
			closeConn()
			return
		}
		if !pr.Response.KeepAlive {
			closeConn()
			return
		}
		pr.Recycle(consumed)
	}
}

// serveOnce runs exactly one request/response cycle on conn using pr. It
// returns the terminal Kind, whether the handler detached the connection
// via Context.ToSSE, and how many leading bytes of pr.Recv.B this request
// consumed — any bytes beyond that belong to a pipelined next request
// already sitting in the buffer and must survive the next Recycle.
func (s *Server) serveOnce(ctx context.Context, conn transport.Conn, pr *provision.Provision, log *logrus.Entry) (Kind, bool, int) {
	headerEnd, err := s.recvHeaders(ctx, conn, pr)
	if err != nil {
		kind, detached := s.failConnection(conn, log, err)
		return kind, detached, 0
	}

	block := pr.Recv.B[:headerEnd+4]
	limits := request.Limits{
		RequestURIBytesMax: s.cfg.RequestURIBytesMax,
		HeaderCountMax:     s.cfg.HeaderCountMax,
	}
	if err := request.Parse(block, &pr.Request, limits); err != nil {
		kind, detached := s.respondParseError(conn, log, err)
		return kind, detached, 0
	}
	log = log.WithFields(logrus.Fields{"method": pr.Request.Method.String(), "uri": pr.Request.URI})
	log.WithField("user_agent", pr.Request.Header("User-Agent")).Debug("request")

	consumed := headerEnd + 4
	if pr.Request.Method.ExpectsBody() {
		n, err := s.recvBody(ctx, conn, pr, consumed)
		if err != nil {
			kind, detached := s.failConnection(conn, log, err)
			return kind, detached, 0
		}
		pr.Request.Body = pr.Recv.B[consumed : consumed+n]
		consumed += n
	}

	ctxObj := newContext(pr, conn, s.pool)

	bundle, matchErr := s.router.Match(pr.Request.Path, pr.Request.Query, pr.Captures, pr.Queries)
	var respond response.Respond
	var kind Kind
	switch {
	case errors.Is(matchErr, router.ErrRouteNotFound):
		respond = response.Respond{Status: response.StatusNotFound, Mime: "text/plain", Body: []byte("not found")}
		kind = KindRouteNotFound
	default:
		mw, ok := bundle.Route.Methods[pr.Request.Method]
		if !ok {
			respond = response.Respond{Status: response.StatusMethodNotAllowed, Mime: "text/plain", Body: []byte("method not allowed")}
			kind = KindMethodNotAllowed
		} else {
			respond, kind = s.invoke(ctxObj, mw, bundle.Middlewares, log)
			if ctxObj.detached {
				return KindOK, true, 0
			}
		}
	}

	pr.Response.ApplyRespond(respond)
	if v, ok := pr.Request.HeaderOK("Connection"); ok && equalFoldClose(v) {
		pr.Response.KeepAlive = false
	}
	for _, h := range pr.Response.ExtraHeaders {
		if strings.EqualFold(h.Name, "Connection") && equalFoldClose(h.Value) {
			pr.Response.KeepAlive = false
		}
	}

	if err := s.sendResponse(ctx, conn, pr); err != nil {
		return KindSocketError, false, 0
	}

	return kind, false, consumed
}

func (s *Server) invoke(ctxObj *Context, mw Middleware, middlewares []Middleware, log *logrus.Entry) (respond response.Respond, kind Kind) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("handler panicked")
			if s.sentryEnabled {
				sentry.CurrentHub().Recover(r)
			}
			respond = response.Respond{Status: response.StatusInternalServerError, Mime: "text/plain", Body: []byte("internal error")}
			kind = KindHandlerFailed
		}
	}()
	next := chain(mw, middlewares)
	respond = next(ctxObj)
	kind = KindOK
	return respond, kind
}

func (s *Server) recvHeaders(ctx context.Context, conn transport.Conn, pr *provision.Provision) (int, error) {
	chunk := make([]byte, s.cfg.SocketBufferBytes)
	window := s.cfg.SocketBufferBytes * headerScanMultiple

	for {
		if idx := request.FindHeaderEnd(pr.Recv.B, window); idx >= 0 {
			return idx, nil
		}
		if len(pr.Recv.B) >= s.cfg.RequestBytesMax {
			return 0, ErrContentTooLarge
		}
		n, err := conn.Recv(ctx, chunk)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			_, _ = pr.Recv.Write(chunk[:n])
		}
	}
}

func (s *Server) recvBody(ctx context.Context, conn transport.Conn, pr *provision.Provision, bodyStart int) (int, error) {
	contentLength := 0
	if v, ok := pr.Request.HeaderOK("Content-Length"); ok {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			contentLength = n
		}
	}
	if bodyStart+contentLength > s.cfg.RequestBytesMax {
		return 0, ErrContentTooLarge
	}

	chunk := make([]byte, s.cfg.SocketBufferBytes)
	for len(pr.Recv.B)-bodyStart < contentLength {
		n, err := conn.Recv(ctx, chunk)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			_, _ = pr.Recv.Write(chunk[:n])
		}
	}
	return contentLength, nil
}

func (s *Server) sendResponse(ctx context.Context, conn transport.Conn, pr *provision.Provision) error {
	pr.Scratch.Reset()
	if _, err := response.Encode(pr.Scratch, &pr.Response); err != nil {
		return err
	}
	ps := response.EncodeToPseudoslice(pr.Scratch.B, pr.Response.Body)

	offset := 0
	for offset < ps.Len() {
		window := ps.Get(offset, ps.Len())
		if len(window) == 0 {
			break
		}
		if err := conn.SendAll(ctx, window); err != nil {
			return err
		}
		offset += len(window)
	}
	return nil
}

// respondParseError maps a request.Parse error to its Kind and terminates
// the connection with no bytes written. Per spec.md §4.1/§7, parse-level
// errors (malformed request line, header count overflow, URI too long,
// unsupported version) are shed-load failures: the connection is dropped
// without attempting a response, the same as a body-too-large or socket
// failure.
func (s *Server) respondParseError(conn transport.Conn, log *logrus.Entry, err error) (Kind, bool) {
	var kind Kind
	switch {
	case errors.Is(err, request.ErrTooManyHeaders):
		kind = KindTooManyHeaders
	case errors.Is(err, request.ErrInvalidMethod):
		kind = KindInvalidMethod
	case errors.Is(err, request.ErrURITooLong):
		kind = KindURITooLong
	case errors.Is(err, request.ErrHTTPVersionNotSupported):
		kind = KindHTTPVersionNotSupported
	default:
		kind = KindMalformedRequest
	}

	log.WithError(err).Debug("parse error, dropping connection without response")
	return kind, false
}

func (s *Server) failConnection(conn transport.Conn, log *logrus.Entry, err error) (Kind, bool) {
	if errors.Is(err, transport.ErrClosed) {
		return KindSocketClosed, false
	}
	if errors.Is(err, ErrContentTooLarge) {
		return KindContentTooLarge, false
	}
	log.WithError(err).Debug("socket error")
	return KindSocketError, false
}

func equalFoldClose(v string) bool {
	if len(v) != len("close") {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != "close"[i] {
			return false
		}
	}
	return true
}
