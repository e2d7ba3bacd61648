package transport

import (
	"context"
	"fmt"
	"net"
)

// Dial opens a TCP connection to address and wraps it in a Conn.
func Dial(ctx context.Context, address string, config ConnConfig) (*Conn, error) {
	dialer := &net.Dialer{}
	nc, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	if config.RemoteAddr == "" {
		config.RemoteAddr = nc.RemoteAddr().String()
	}
	return NewConn(nc, config), nil
}
