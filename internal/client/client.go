package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/realmchat/internal/netx"
	"github.com/dmitrijs2005/realmchat/internal/protocol"
)

type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// Dial connects to address. timeout bounds the connect only.
func Dial(ctx context.Context, address string, timeout time.Duration) (*Client, error) {
	conn, err := netx.DialTCP(ctx, address, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{conn: conn, reader: bufio.NewReader(conn)}
}

// Do sends line, adding the request terminator if missing, and waits for the
// response. Any I/O error leaves the connection unusable and the caller
// should Close it.
func (c *Client) Do(ctx context.Context, line string) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return protocol.Response{}, ErrClosed
	}

	if err := netx.ApplyDeadline(ctx, c.conn); err != nil {
		return protocol.Response{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	// unblock a pending read/write when ctx is cancelled without a deadline
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if !strings.HasSuffix(line, protocol.RequestTerminator) {
		line += protocol.RequestTerminator
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		return protocol.Response{}, fmt.Errorf("%w: write: %w", ErrUnavailable, err)
	}

	resp, err := protocol.ReadResponse(c.reader)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("%w: read: %w", ErrUnavailable, err)
	}
	return resp, nil
}

// Call formats a request from command and args and sends it with Do.
func (c *Client) Call(ctx context.Context, command string, args ...string) (protocol.Response, error) {
	return c.Do(ctx, protocol.FormatRequest(command, args...))
}

// Close closes the connection. It is safe to call more than once and does
// not wait for an in-flight Do.
func (c *Client) Close() error {
	// closing the conn first unblocks a Do holding the mutex
	err := c.conn.Close()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
