// Package relayclient drives a padbridge relay over TCP.
package relayclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/Alia5/padbridge/bridge"
	"github.com/Alia5/padbridge/device/switchpad"
	"github.com/Alia5/padbridge/internal/server/relay/auth"
)

// Config controls dialing and write behaviour.
type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Password     string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
}

var ErrTextContainsNUL = errors.New("display text contains NUL")

// Client is a connection to a relay. It is not safe for concurrent use.
type Client struct {
	conn net.Conn
	cfg  Config
}

// Dial connects to addr. cfg may be nil for defaults; a non-empty password
// runs the relay auth handshake before the stream starts.
func Dial(ctx context.Context, addr string, cfg *Config) (*Client, error) {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	d := &net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}

	if c.Password != "" {
		sealed, err := authenticate(ctx, conn, c)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn = sealed
	}
	return &Client{conn: conn, cfg: c}, nil
}

func authenticate(ctx context.Context, conn net.Conn, cfg Config) (net.Conn, error) {
	key, err := auth.DeriveKey(cfg.Password)
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	} else if cfg.DialTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(cfg.DialTimeout))
	}
	clientNonce, serverNonce, err := auth.ClientHandshake(conn, conn, key)
	if err != nil {
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return auth.WrapConn(conn, auth.DeriveSessionKey(key, clientNonce, serverNonce), auth.ClientSide)
}

func (c *Client) write(b []byte) error {
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if _, err := c.conn.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Send streams one input state.
func (c *Client) Send(state switchpad.InputState) error {
	frame, err := state.MarshalBinary()
	if err != nil {
		return err
	}
	return c.write(frame)
}

// SendInputs streams the neutral state with inputs applied.
func (c *Client) SendInputs(inputs ...switchpad.Input) error {
	return c.Send(switchpad.NewInputState(inputs...))
}

// Press sends inputs, waits hold and sends the neutral state.
func (c *Client) Press(hold time.Duration, inputs ...switchpad.Input) error {
	if err := c.SendInputs(inputs...); err != nil {
		return err
	}
	time.Sleep(hold)
	return c.Send(switchpad.Neutral())
}

// Display asks the relay to show text on the bridge display.
func (c *Client) Display(text string) error {
	if bytes.IndexByte([]byte(text), 0) >= 0 {
		return ErrTextContainsNUL
	}
	data, err := bridge.EncodeDisplayText(text)
	if err != nil {
		return err
	}
	return c.write(append(data, 0))
}

func (c *Client) Close() error {
	return c.conn.Close()
}
