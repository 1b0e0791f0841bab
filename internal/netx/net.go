package netx

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// PeerAddress validates a host and port pair as given on the wire and joins
// them into a dialable address.
func PeerAddress(host, port string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("empty host")
	}
	p, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return net.JoinHostPort(host, strconv.Itoa(p)), nil
}

// DialTCP dials address, bounded by both ctx and timeout. A zero timeout
// leaves only the ctx bound.
func DialTCP(ctx context.Context, address string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return conn, nil
}

// ApplyDeadline sets conn's deadline from ctx, or clears it when ctx has none.
func ApplyDeadline(ctx context.Context, conn net.Conn) error {
	if dl, ok := ctx.Deadline(); ok {
		return conn.SetDeadline(dl)
	}
	return conn.SetDeadline(time.Time{})
}
