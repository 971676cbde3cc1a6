// Package response defines the Respond value handlers return, the Response
// the connection engine accumulates it into, and the encoder that turns a
// Response into wire bytes.
package response

import "fmt"

// Status is an HTTP status code, named the way spec.md's data model asks
// for ("enum of codes by name").
type Status int

const (
	StatusOK                  Status = 200
	StatusNoContent           Status = 204
	StatusMovedPermanently    Status = 301
	StatusFound               Status = 302
	StatusBadRequest          Status = 400
	StatusUnauthorized        Status = 401
	StatusForbidden           Status = 403
	StatusNotFound            Status = 404
	StatusMethodNotAllowed    Status = 405
	StatusRequestTimeout      Status = 408
	StatusPayloadTooLarge     Status = 413
	StatusURITooLong          Status = 414
	StatusRequestHeaderFieldsTooLarge Status = 431
	StatusTooManyRequests     Status = 429
	StatusInternalServerError Status = 500
	StatusNotImplemented      Status = 501
	StatusHTTPVersionNotSupported Status = 505

	// StatusUnset is the zero value. A handler that returns a Respond with
	// Status == StatusUnset triggers spec.md §8's MissingStatus boundary
	// behavior: the connection is aborted rather than sending a bogus
	// status line.
	StatusUnset Status = 0
)

// String returns the status's reason phrase (e.g. "Not Found"), suitable
// for logging or as a plain-text error body.
func (s Status) String() string { return s.reason() }

func (s Status) reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoContent:
		return "No Content"
	case StatusMovedPermanently:
		return "Moved Permanently"
	case StatusFound:
		return "Found"
	case StatusBadRequest:
		return "Bad Request"
	case StatusUnauthorized:
		return "Unauthorized"
	case StatusForbidden:
		return "Forbidden"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusRequestTimeout:
		return "Request Timeout"
	case StatusPayloadTooLarge:
		return "Payload Too Large"
	case StatusURITooLong:
		return "URI Too Long"
	case StatusRequestHeaderFieldsTooLarge:
		return "Request Header Fields Too Large"
	case StatusTooManyRequests:
		return "Too Many Requests"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusNotImplemented:
		return "Not Implemented"
	case StatusHTTPVersionNotSupported:
		return "HTTP Version Not Supported"
	default:
		return "Unknown"
	}
}

// ExtraHeader is a single user-supplied response header.
type ExtraHeader struct {
	Name  string
	Value string
}

// Respond is what a handler or middleware returns to describe the response
// it wants sent. Body may point into the arena (valid for the request's
// lifetime) or be a static/immutable byte slice — the encoder never mutates
// it.
type Respond struct {
	Status       Status
	Mime         string
	Body         []byte
	ExtraHeaders []ExtraHeader
}

// Header appends an extra header to r and returns r for chaining, mirroring
// the fluent style fiber's Ctx uses (c.Status(...).JSON(...)) without
// depending on fiber itself.
func (r Respond) Header(name, value string) Respond {
	r.ExtraHeaders = append(r.ExtraHeaders, ExtraHeader{Name: name, Value: value})
	return r
}

// MissingStatusError is returned by Encode when asked to encode a Respond
// whose Status is StatusUnset.
type MissingStatusError struct{}

func (MissingStatusError) Error() string { return "response: handler returned no status" }

// Response is the connection engine's mutable accumulator for one request's
// reply: it start from a Respond and normalizes defaults (Content-Type,
// Server, Connection) the way spec.md §4.3 specifies.
type Response struct {
	Respond
	KeepAlive bool
}

// Reset clears the response between requests, retaining the ExtraHeaders
// slice's backing array.
func (res *Response) Reset() {
	res.Status = StatusUnset
	res.Mime = ""
	res.Body = nil
	res.ExtraHeaders = res.ExtraHeaders[:0]
	res.KeepAlive = true
}

// ApplyRespond copies a handler's Respond into the response, retaining the
// backing ExtraHeaders array when possible.
func (res *Response) ApplyRespond(r Respond) {
	res.Status = r.Status
	res.Mime = r.Mime
	res.Body = r.Body
	res.ExtraHeaders = append(res.ExtraHeaders[:0], r.ExtraHeaders...)
}

func statusLine(s Status) string {
	return fmt.Sprintf("HTTP/1.1 %d %s\r\n", int(s), s.reason())
}
