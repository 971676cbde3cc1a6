package transport

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/valyala/tcplisten"
)

// tcpListener wraps a net.Listener built with a backlog-tuned
// valyala/tcplisten config, implementing config.Config's backlog_count
// option — a facility net.Listen alone doesn't expose.
type tcpListener struct {
	ln net.Listener
}

// ListenTCP builds a Listener bound to addr (e.g. ":8080") with the given
// listen backlog.
func ListenTCP(addr string, backlog int) (Listener, error) {
	cfg := tcplisten.Config{
		ReusePort:   true,
		DeferAccept: true,
		Backlog:     backlog,
	}
	ln, err := cfg.NewListener("tcp4", addr)
	if err != nil {
		return nil, err
	}
	return &tcpListener{ln: ln}, nil
}

func (l *tcpListener) Accept(ctx context.Context) (Conn, error) {
	type result struct {
		c   net.Conn
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := l.ln.Accept()
		done <- result{c, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &tcpConn{conn: r.c}, nil
	case <-ctx.Done():
		_ = l.ln.Close()
		<-done
		return nil, ctx.Err()
	}
}

func (l *tcpListener) Close() error    { return l.ln.Close() }
func (l *tcpListener) Addr() net.Addr { return l.ln.Addr() }

// tcpConn adapts a net.Conn to the Conn interface.
type tcpConn struct {
	conn net.Conn
}

func (c *tcpConn) Recv(ctx context.Context, buf []byte) (int, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(dl)
	}
	n, err := c.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, ErrClosed
		}
		var netErr net.Error
		if errors.As(err, &netErr) && !netErr.Timeout() {
			if isClosedConnError(err) {
				return n, ErrClosed
			}
		}
		return n, err
	}
	return n, nil
}

func (c *tcpConn) SendAll(ctx context.Context, data []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
	}
	for len(data) > 0 {
		n, err := c.conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (c *tcpConn) DisableNagle() error {
	if tc, ok := c.conn.(*net.TCPConn); ok {
		return tc.SetNoDelay(true)
	}
	return nil
}

func (c *tcpConn) Close() error        { return c.conn.Close() }
func (c *tcpConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
