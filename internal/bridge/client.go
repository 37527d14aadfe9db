package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jackwaller57/simpa/internal/telemetry"
)

// AddrAuto makes the client discover the host over mDNS.
const AddrAuto = "auto"

// Client defaults.
const (
	DefaultClientName      = "SIMPA"
	DefaultConnectAttempts = 5
	DefaultRetryDelay      = 2 * time.Second
	DefaultDiscoverTimeout = 3 * time.Second
)

// ClientConfig configures a Client.
type ClientConfig struct {
	Addr            string // host:port or AddrAuto
	Name            string
	Attempts        uint
	RetryDelay      time.Duration
	DiscoverTimeout time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.Name == "" {
		c.Name = DefaultClientName
	}
	if c.Attempts == 0 {
		c.Attempts = DefaultConnectAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.DiscoverTimeout <= 0 {
		c.DiscoverTimeout = DefaultDiscoverTimeout
	}
	return c
}

// Client is a telemetry.Source backed by a bridge host.
//
// Next must be called from a single goroutine; Close may be called from any.
type Client struct {
	cfg ClientConfig

	mu      sync.Mutex
	conn    *Conn
	pending []Frame
	closed  bool
}

// NewClient creates an unconnected client.
func NewClient(cfg ClientConfig) *Client {
	return &Client{cfg: cfg.withDefaults()}
}

var _ telemetry.Source = (*Client)(nil)

// Connect dials the host, retrying at a constant interval until the attempt
// budget is spent.
func (c *Client) Connect(ctx context.Context) error {
	attempt := 0
	op := func() (*Conn, error) {
		attempt++
		slog.Info("connecting to telemetry host",
			"attempt", attempt, "max", c.cfg.Attempts, "addr", c.cfg.Addr)

		addr := c.cfg.Addr
		if addr == AddrAuto {
			found, err := Discover(ctx, c.cfg.DiscoverTimeout)
			if err != nil {
				return nil, err
			}
			addr = found
		}

		var d net.Dialer
		nc, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		return NewConn(nc), nil
	}

	conn, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.cfg.RetryDelay)),
		backoff.WithMaxTries(c.cfg.Attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("connect attempt failed", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return fmt.Errorf("connect after %d attempts: %w", attempt, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return telemetry.ErrClosed
	}
	c.conn = conn
	slog.Info("connected to telemetry host", "addr", conn.NetConn().RemoteAddr().String(), "name", c.cfg.Name)
	return nil
}

// Register subscribes to defs and waits for the host's answer. Host frames
// that arrive before the answer are kept for Next.
func (c *Client) Register(ctx context.Context, defs []telemetry.Definition) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	if err := conn.Send(Frame{Kind: KindSubscribe, Definitions: defs, Message: c.cfg.Name}); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	for {
		f, err := c.recv(ctx, conn)
		if err != nil {
			return fmt.Errorf("await subscription: %w", err)
		}
		switch f.Kind {
		case KindAck:
			slog.Debug("subscription accepted", "definitions", len(defs))
			return nil
		case KindNack:
			if f.Message == "" {
				return errors.New("subscription rejected")
			}
			return fmt.Errorf("subscription rejected: %s", f.Message)
		default:
			c.pending = append(c.pending, f)
		}
	}
}

// Next returns the next host message. The connection ending, cleanly or
// not, is reported as telemetry.ErrClosed. A frame that cannot be decoded
// is returned as an error and the stream continues.
func (c *Client) Next(ctx context.Context) (telemetry.Message, error) {
	if len(c.pending) > 0 {
		f := c.pending[0]
		c.pending = c.pending[1:]
		return c.message(f)
	}

	conn, err := c.connection()
	if err != nil {
		return nil, err
	}
	f, err := c.recv(ctx, conn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrMalformedFrame) {
			return nil, err
		}
		slog.Debug("telemetry host connection ended", "error", err)
		return nil, telemetry.ErrClosed
	}
	return c.message(f)
}

// Close drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) connection() (*Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return nil, telemetry.ErrClosed
	}
	return c.conn, nil
}

func (c *Client) message(f Frame) (telemetry.Message, error) {
	msg, ok := f.Telemetry()
	if !ok {
		slog.Debug("ignoring control frame", "kind", f.Kind)
		return nil, telemetry.ErrNoData
	}
	return msg, nil
}

// recv reads one frame, unblocking when ctx ends.
func (c *Client) recv(ctx context.Context, conn *Conn) (Frame, error) {
	nc := conn.NetConn()
	if deadline, ok := ctx.Deadline(); ok {
		nc.SetReadDeadline(deadline)
		defer nc.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() { nc.SetReadDeadline(time.Now()) })
	defer stop()

	f, err := conn.Recv()
	if err != nil && ctx.Err() != nil {
		return Frame{}, ctx.Err()
	}
	return f, err
}
