package zzz

import (
	"context"

	"github.com/sirupsen/logrus"

	"webhooks.cc/zzz/config"
	"webhooks.cc/zzz/provision"
	"webhooks.cc/zzz/request"
	"webhooks.cc/zzz/router"
	"webhooks.cc/zzz/transport"
)

// Server owns one routing table, one provision pool, and the accept loop
// that feeds connections into the engine.
type Server struct {
	cfg    config.Config
	router *router.Trie[Middleware]
	pool   *provision.Pool
	log    *logrus.Logger

	sentryEnabled bool
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the default logrus logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithSentry enables panic capture via the sentry-go SDK's current hub, on
// the assumption the caller has already called sentry.Init.
func WithSentry() Option {
	return func(s *Server) { s.sentryEnabled = true }
}

// New builds a Server from cfg.
func New(cfg config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		router: router.New[Middleware](),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get registers handler (plus any route-specific middlewares) for GET
// requests matching template.
func (s *Server) Get(template string, handler Handler, middlewares ...Middleware) error {
	return s.register(template, request.MethodGET, handler, middlewares)
}

// Post registers handler for POST requests matching template.
func (s *Server) Post(template string, handler Handler, middlewares ...Middleware) error {
	return s.register(template, request.MethodPOST, handler, middlewares)
}

// Put registers handler for PUT requests matching template.
func (s *Server) Put(template string, handler Handler, middlewares ...Middleware) error {
	return s.register(template, request.MethodPUT, handler, middlewares)
}

// Patch registers handler for PATCH requests matching template.
func (s *Server) Patch(template string, handler Handler, middlewares ...Middleware) error {
	return s.register(template, request.MethodPATCH, handler, middlewares)
}

// Delete registers handler for DELETE requests matching template.
func (s *Server) Delete(template string, handler Handler, middlewares ...Middleware) error {
	return s.register(template, request.MethodDELETE, handler, middlewares)
}

// Options registers handler for OPTIONS requests matching template, e.g.
// for a CORS middleware's own preflight short-circuit.
func (s *Server) Options(template string, handler Handler, middlewares ...Middleware) error {
	return s.register(template, request.MethodOPTIONS, handler, middlewares)
}

func (s *Server) register(template string, method request.Method, handler Handler, middlewares []Middleware) error {
	return s.router.Register(template, method, asMiddleware(handler), middlewares...)
}

// Use attaches middlewares to every route beneath template, per spec.md
// §4.4's ancestor-middleware accumulation.
func (s *Server) Use(template string, middlewares ...Middleware) error {
	return s.router.Use(template, middlewares...)
}

// ListenAndServe binds addr and serves connections until ctx is canceled.
// Each accepted connection is handled on its own goroutine; the next
// Accept is issued immediately so one slow connection never delays
// admitting the next (spec.md §5).
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	limits := provision.Limits{
		ConnectionArenaBytesRetain: s.cfg.ConnectionArenaBytesRetain,
		ListRecvBytesRetain:        s.cfg.ListRecvBytesRetain,
		CaptureCountMax:            s.cfg.CaptureCountMax,
		QueryCountMax:              s.cfg.QueryCountMax,
	}
	s.pool = provision.NewPool(limits, s.cfg.ConnectionCountMax)

	ln, err := transport.ListenTCP(addr, s.cfg.BacklogCount)
	if err != nil {
		return err
	}
	defer ln.Close()

	s.log.WithField("addr", addr).Info("listening")

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.WithError(err).Warn("accept failed")
			continue
		}
		if err := conn.DisableNagle(); err != nil {
			s.log.WithError(err).Debug("failed to disable Nagle's algorithm")
		}
		go s.Serve(ctx, conn)
	}
}

// Serve drives a single already-accepted connection through the engine.
// ListenAndServe calls this for every accepted socket; exposing it directly
// lets callers (and tests) hand the engine a Conn obtained some other way.
func (s *Server) Serve(ctx context.Context, conn transport.Conn) {
	if s.pool == nil {
		limits := provision.Limits{
			ConnectionArenaBytesRetain: s.cfg.ConnectionArenaBytesRetain,
			ListRecvBytesRetain:        s.cfg.ListRecvBytesRetain,
			CaptureCountMax:            s.cfg.CaptureCountMax,
			QueryCountMax:              s.cfg.QueryCountMax,
		}
		s.pool = provision.NewPool(limits, s.cfg.ConnectionCountMax)
	}
	s.serveConnection(ctx, conn)
}
