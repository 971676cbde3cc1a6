// Package zzz is the connection engine: it owns the accept loop, drives
// each connection's recv/parse/route/middleware/respond/keep-alive state
// machine, and exposes the Context/Handler/Middleware types a server built
// on it programs against.
package zzz

import "errors"

// Kind classifies why a connection task ended, for logging and for the
// (rare) cases a caller wants to branch on it.
type Kind uint8

const (
	KindOK Kind = iota
	KindTooManyHeaders
	KindContentTooLarge
	KindMalformedRequest
	KindInvalidMethod
	KindURITooLong
	KindHTTPVersionNotSupported
	KindRouteNotFound
	KindMethodNotAllowed
	KindHandlerFailed
	KindSocketClosed
	KindSocketError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindTooManyHeaders:
		return "too_many_headers"
	case KindContentTooLarge:
		return "content_too_large"
	case KindMalformedRequest:
		return "malformed_request"
	case KindInvalidMethod:
		return "invalid_method"
	case KindURITooLong:
		return "uri_too_long"
	case KindHTTPVersionNotSupported:
		return "http_version_not_supported"
	case KindRouteNotFound:
		return "route_not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindHandlerFailed:
		return "handler_failed"
	case KindSocketClosed:
		return "socket_closed"
	case KindSocketError:
		return "socket_error"
	default:
		return "unknown"
	}
}

// ErrContentTooLarge is returned when a request body would exceed
// request_bytes_max (spec.md §4.1).
var ErrContentTooLarge = errors.New("zzz: request body exceeds request_bytes_max")

// ErrHandlerPanicked names a recovered handler panic. The engine itself does
// not return or wrap it: Server.invoke turns a handler panic into a 500
// response and KindHandlerFailed.
var ErrHandlerPanicked = errors.New("zzz: handler panicked")
