package zzz

import "webhooks.cc/zzz/response"

// Handler produces a response for a matched request.
type Handler func(*Context) response.Respond

// Next is the rest of the middleware chain (and, ultimately, the route's
// Handler) a Middleware may call to continue processing, or skip to short-
// circuit.
type Next func(*Context) response.Respond

// Middleware wraps Next, observing or rewriting the request/response around
// the call. A match's Bundle.Middlewares accumulates these in the order
// spec.md §4.4 describes: every ancestor path's middlewares, outermost
// first, followed by the route's own (Route.Middlewares).
type Middleware func(Next) Next

// asMiddleware adapts a terminal Handler into the Middleware shape the
// router stores, so Route.Methods and Route.Middlewares can share a single
// generic parameter (router.Trie[Middleware]) without the router package
// needing to know about Handler at all.
func asMiddleware(h Handler) Middleware {
	return func(Next) Next {
		return func(c *Context) response.Respond { return h(c) }
	}
}

// chain folds middlewares around terminal (in accumulation order: index 0
// runs first) and returns the composed Next ready to call.
func chain(terminal Middleware, middlewares []Middleware) Next {
	next := terminal(nil)
	for i := len(middlewares) - 1; i >= 0; i-- {
		next = middlewares[i](next)
	}
	return next
}
