package request

import (
	"bytes"
	"errors"
)

// Parse-level errors. Per spec.md §7 these terminate the connection without
// a response — the caller never formats a Respond for these, it just closes.
var (
	ErrMalformedRequest       = errors.New("request: malformed request line")
	ErrInvalidMethod          = errors.New("request: invalid method")
	ErrURITooLong             = errors.New("request: uri too long")
	ErrHTTPVersionNotSupported = errors.New("request: http version not supported")
	ErrTooManyHeaders         = errors.New("request: too many headers")
)

// Limits bounds parsing, mirroring the relevant fields of config.Config.
// Parser takes Limits directly (rather than importing config) to avoid a
// dependency from the parsing hot path onto the config/viper stack.
type Limits struct {
	RequestURIBytesMax int
	HeaderCountMax      int
}

const httpVersion = "HTTP/1.1"

// Parse fills req from block, which must span exactly the request line
// through the terminating "\r\n\r\n" (inclusive). It allocates no strings:
// every Request field is a zero-copy view into block.
func Parse(block []byte, req *Request, limits Limits) error {
	req.Reset()

	lineEnd := bytes.Index(block, []byte("\r\n"))
	if lineEnd < 0 {
		return ErrMalformedRequest
	}
	line := block[:lineEnd]

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return ErrMalformedRequest
	}
	methodTok := line[:sp1]
	rest := line[sp1+1:]

	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 < 0 {
		return ErrMalformedRequest
	}
	uriTok := rest[:sp2]
	versionTok := rest[sp2+1:]

	method := methodFromBytes(methodTok)
	if method == MethodUnknown {
		return ErrInvalidMethod
	}
	if len(uriTok) > limits.RequestURIBytesMax {
		return ErrURITooLong
	}
	if b2s(versionTok) != httpVersion {
		return ErrHTTPVersionNotSupported
	}

	req.Method = method
	req.URI = b2s(uriTok)
	req.Version = b2s(versionTok)
	if i := bytes.IndexByte(uriTok, '?'); i >= 0 {
		req.Path = b2s(uriTok[:i])
		req.Query = b2s(uriTok[i+1:])
	} else {
		req.Path = req.URI
		req.Query = ""
	}

	cursor := lineEnd + 2
	for {
		rem := block[cursor:]
		if len(rem) >= 2 && rem[0] == '\r' && rem[1] == '\n' {
			cursor += 2
			break
		}
		nl := bytes.Index(rem, []byte("\r\n"))
		if nl < 0 {
			return ErrMalformedRequest
		}
		headerLine := rem[:nl]
		colon := bytes.IndexByte(headerLine, ':')
		if colon < 0 {
			return ErrMalformedRequest
		}
		name := trimSpace(headerLine[:colon])
		value := trimSpace(headerLine[colon+1:])
		if !req.addHeader(b2s(name), b2s(value), limits.HeaderCountMax) {
			return ErrTooManyHeaders
		}
		cursor += nl + 2
	}

	return nil
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && isSpace(b[0]) {
		b = b[1:]
	}
	for len(b) > 0 && isSpace(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

// FindHeaderEnd scans the tail of buf (the last scanWindow bytes, or the
// whole buffer if it is shorter) for the "\r\n\r\n" header terminator and
// returns its index (the position of the first '\r'), or -1 if not found.
// Per spec.md §4.1, scanning only the tail lets the connection engine find a
// delimiter that straddles two recv() calls without rescanning the whole
// buffer on every read.
func FindHeaderEnd(buf []byte, scanWindow int) int {
	start := 0
	if len(buf) > scanWindow {
		start = len(buf) - scanWindow
	}
	idx := bytes.Index(buf[start:], []byte("\r\n\r\n"))
	if idx < 0 {
		return -1
	}
	return start + idx
}
