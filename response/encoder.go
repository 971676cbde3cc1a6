package response

import (
	"strconv"
)

// ScratchWriter is the minimal surface the encoder needs from a scratch
// buffer. *bytebufferpool.ByteBuffer satisfies this without this package
// importing bytebufferpool directly, keeping response decoupled from the
// provision package that owns the pool.
type ScratchWriter interface {
	Write(p []byte) (int, error)
	WriteString(s string) (int, error)
}

const defaultMime = "application/octet-stream"

// Encode writes the status line, standard headers, user extra headers,
// Content-Type, and Content-Length into scratch, per spec.md §4.3's fixed
// ordering. It returns the number of bytes written, which is also
// scratch's new length if scratch started empty.
func Encode(scratch ScratchWriter, res *Response) (int, error) {
	if res.Status == StatusUnset {
		return 0, MissingStatusError{}
	}

	n := 0
	w := func(s string) error {
		written, err := scratch.WriteString(s)
		n += written
		return err
	}

	if err := w(statusLine(res.Status)); err != nil {
		return n, err
	}
	if err := w("Server: zzz\r\n"); err != nil {
		return n, err
	}

	conn := "keep-alive"
	if !res.KeepAlive {
		conn = "close"
	}
	if !hasHeader(res.ExtraHeaders, "connection") {
		if err := w("Connection: " + conn + "\r\n"); err != nil {
			return n, err
		}
	}

	for _, h := range res.ExtraHeaders {
		if err := w(h.Name + ": " + h.Value + "\r\n"); err != nil {
			return n, err
		}
	}

	if !hasHeader(res.ExtraHeaders, "content-type") {
		mime := res.Mime
		if mime == "" {
			mime = defaultMime
		}
		if err := w("Content-Type: " + mime + "\r\n"); err != nil {
			return n, err
		}
	}

	if !hasHeader(res.ExtraHeaders, "content-length") {
		if err := w("Content-Length: " + strconv.Itoa(len(res.Body)) + "\r\n"); err != nil {
			return n, err
		}
	}

	if err := w("\r\n"); err != nil {
		return n, err
	}

	return n, nil
}

func hasHeader(headers []ExtraHeader, lowerName string) bool {
	for _, h := range headers {
		if len(h.Name) != len(lowerName) {
			continue
		}
		match := true
		for i := 0; i < len(h.Name); i++ {
			c := h.Name[i]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != lowerName[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// EncodeToPseudoslice returns a Pseudoslice over headerBytes (already
// written by Encode) followed by body, ready for the connection engine to
// drain with send_all. It encodes nothing itself.
func EncodeToPseudoslice(headerBytes, body []byte) Pseudoslice {
	return NewPseudoslice(headerBytes, body)
}
