package response

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHelloWorld(t *testing.T) {
	var res Response
	res.Reset()
	res.ApplyRespond(Respond{
		Status: StatusOK,
		Mime:   "text/html",
		Body:   []byte("Hello, World!"),
	})

	var buf bytes.Buffer
	n, err := Encode(&buf, &res)
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), n)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, out, "Server: zzz\r\n")
	assert.Contains(t, out, "Connection: keep-alive\r\n")
	assert.Contains(t, out, "Content-Type: text/html\r\n")
	assert.Contains(t, out, "Content-Length: 13\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n"))
}

func TestEncodeDefaultMime(t *testing.T) {
	var res Response
	res.Reset()
	res.ApplyRespond(Respond{Status: StatusNoContent})

	var buf bytes.Buffer
	_, err := Encode(&buf, &res)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Content-Type: application/octet-stream\r\n")
}

func TestEncodeMissingStatus(t *testing.T) {
	var res Response
	res.Reset()

	var buf bytes.Buffer
	_, err := Encode(&buf, &res)
	assert.ErrorIs(t, err, MissingStatusError{})
}

func TestEncodeConnectionClose(t *testing.T) {
	var res Response
	res.Reset()
	res.KeepAlive = false
	res.ApplyRespond(Respond{Status: StatusOK})

	var buf bytes.Buffer
	_, err := Encode(&buf, &res)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Connection: close\r\n")
}

func TestPseudosliceGetAcrossRanges(t *testing.T) {
	headers := []byte("HEADERS")
	body := []byte("BODYBYTES")
	p := NewPseudoslice(headers, body)
	assert.Equal(t, len(headers)+len(body), p.Len())

	var out []byte
	for off := 0; off < p.Len(); {
		chunk := p.Get(off, 4)
		require.NotEmpty(t, chunk)
		out = append(out, chunk...)
		off += len(chunk)
	}
	assert.Equal(t, "HEADERSBODYBYTES", string(out))
}

func TestPseudosliceSkipsEmptyRanges(t *testing.T) {
	p := NewPseudoslice(nil, []byte("x"), []byte{})
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, "x", string(p.Get(0, 10)))
}
