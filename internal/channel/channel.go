package channel

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/mranv/agentARChecker/internal/frame"
	"github.com/mranv/agentARChecker/internal/services"
)

// Options controls connection setup and per-operation deadlines. Zero
// timeouts block indefinitely.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Limits         frame.Limits
}

func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 5 * time.Second,
		Limits:         frame.DefaultLimits(),
	}
}

// Channel carries framed messages over a single stream connection. It is
// owned by one caller, used for one exchange and never reconnects: once
// closed every Send and Receive fails with services.KindNotConnected.
type Channel struct {
	mu       sync.Mutex
	conn     net.Conn
	endpoint string
	opts     Options
}

// Dial connects to the Unix socket at endpoint.
func Dial(ctx context.Context, endpoint string, opts Options) (*Channel, error) {
	dialer := net.Dialer{Timeout: opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "unix", endpoint)
	if err != nil {
		return nil, services.Wrap(services.KindConnection, "connect "+endpoint, err)
	}
	ch := New(conn, opts)
	ch.endpoint = endpoint
	return ch, nil
}

// New wraps an already established connection.
func New(conn net.Conn, opts Options) *Channel {
	return &Channel{conn: conn, opts: opts}
}

// Endpoint returns the socket path the channel was dialed against.
func (c *Channel) Endpoint() string {
	return c.endpoint
}

// Connected reports whether the channel still owns a live connection.
func (c *Channel) Connected() bool {
	return c.current() != nil
}

// Send writes one frame carrying payload.
func (c *Channel) Send(payload []byte) error {
	conn := c.current()
	if conn == nil {
		return services.Wrap(services.KindNotConnected, "send", nil)
	}
	if c.opts.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return services.Wrap(services.KindIO, "send", err)
		}
	}
	if err := frame.WriteFrame(conn, payload, c.opts.Limits); err != nil {
		return services.Wrap(services.KindIO, "send", err)
	}
	return nil
}

// Receive blocks until one complete frame arrives and returns its payload.
func (c *Channel) Receive() ([]byte, error) {
	conn := c.current()
	if conn == nil {
		return nil, services.Wrap(services.KindNotConnected, "receive", nil)
	}
	if c.opts.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil {
			return nil, services.Wrap(services.KindIO, "receive", err)
		}
	}
	payload, err := frame.ReadFrame(conn, c.opts.Limits)
	if err != nil {
		return nil, services.Wrap(services.KindIO, "receive", err)
	}
	return payload, nil
}

// Close shuts down both directions and releases the connection. Safe to call
// any number of times; shutdown errors are discarded.
func (c *Channel) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseRead()
		_ = uc.CloseWrite()
	}
	_ = conn.Close()
}

func (c *Channel) current() net.Conn {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
