// Package tcp implements application.Transport and application.Dialer over
// a plain net.Conn, grounded on the teacher's
// HandshakeImpl.readWithContext/writeWithContext context-deadline pattern
// (src/crypto/chacha20/handshake.go) generalized into a reusable adapter
// instead of being inlined at each call site.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/signal15/tuya-minisplit-hubitat/application"
)

const DefaultPort = 6668

type Adapter struct {
	conn net.Conn
}

// NewAdapter wraps an already-connected net.Conn.
func NewAdapter(conn net.Conn) *Adapter {
	return &Adapter{conn: conn}
}

type NetDialer struct{}

func (NetDialer) Dial(ctx context.Context, addr string) (application.Transport, error) {
	d := &net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", application.ErrTransport, addr, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return NewAdapter(conn), nil
}

func (a *Adapter) Read(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: read canceled: %v", application.ErrTransport, ctx.Err())
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := a.conn.SetReadDeadline(deadline); err != nil {
			return 0, fmt.Errorf("%w: set read deadline: %v", application.ErrTransport, err)
		}
		defer a.conn.SetReadDeadline(time.Time{})
	}

	n, err := a.conn.Read(buf)
	if err != nil {
		return n, wrapIOErr(err)
	}
	return n, nil
}

func (a *Adapter) Write(ctx context.Context, data []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: write canceled: %v", application.ErrTransport, ctx.Err())
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := a.conn.SetWriteDeadline(deadline); err != nil {
			return 0, fmt.Errorf("%w: set write deadline: %v", application.ErrTransport, err)
		}
		defer a.conn.SetWriteDeadline(time.Time{})
	}

	n, err := a.conn.Write(data)
	if err != nil {
		return n, wrapIOErr(err)
	}
	return n, nil
}

func (a *Adapter) Close() error {
	if err := a.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: close: %v", application.ErrTransport, err)
	}
	return nil
}

func wrapIOErr(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: connection closed by peer: %v", application.ErrTransport, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: i/o timed out: %v", application.ErrTransport, err)
	}
	return fmt.Errorf("%w: %v", application.ErrTransport, err)
}
