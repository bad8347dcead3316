package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mklimuk/imu/sampler"
)

const (
	defaultDialTimeout  = 2 * time.Second
	defaultWriteTimeout = time.Second
)

type ClientOption func(*Client)

func WithWriteTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.writeTimeout = d
	}
}

func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.dialTimeout = d
	}
}

func WithFormat(format func(sampler.Sample) string) ClientOption {
	return func(c *Client) {
		c.format = format
	}
}

func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// Client is a sampler.Sink sending one line per sample. The connection is
// opened on the first write and dropped on any error; the next write redials.
type Client struct {
	address      string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	format       func(sampler.Sample) string
	logger       *slog.Logger

	mu   sync.Mutex
	conn net.Conn
}

func NewClient(address string, opts ...ClientOption) *Client {
	c := &Client{
		address:      address,
		dialTimeout:  defaultDialTimeout,
		writeTimeout: defaultWriteTimeout,
		format:       FormatText,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Write(ctx context.Context, s sampler.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		d := net.Dialer{Timeout: c.dialTimeout}
		conn, err := d.DialContext(ctx, "tcp", c.address)
		if err != nil {
			return fmt.Errorf("telemetry: could not connect to %s: %w", c.address, err)
		}
		c.logger.Info("connected to mission control", "address", c.address)
		c.conn = conn
	}
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.conn.Write([]byte(c.format(s)))
	if err != nil {
		_ = c.conn.Close()
		c.conn = nil
		return fmt.Errorf("telemetry: could not send sample: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
