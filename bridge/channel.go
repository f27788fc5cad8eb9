// Package bridge speaks the serial protocol of the gamepad bridge: the
// handshake variants, input packet writes with their acknowledgement and the
// display text side channel.
package bridge

import (
	"fmt"
	"io"
	"time"

	"github.com/Alia5/padbridge/internal/log"
	"go.bug.st/serial"
)

// Channel is the byte link to the bridge. A Read that times out returns
// 0, nil. go.bug.st/serial ports satisfy it.
type Channel interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// SerialConfig describes how the serial device is opened.
type SerialConfig struct {
	Port        string        `help:"Serial device the bridge is attached to" required:"" env:"PADBRIDGE_PORT"`
	BaudRate    int           `help:"Serial baud rate" default:"19200" env:"PADBRIDGE_BAUD"`
	ReadTimeout time.Duration `help:"Read timeout for a single reply byte" default:"1s" env:"PADBRIDGE_READ_TIMEOUT"`
}

func DefaultSerialConfig(port string) SerialConfig {
	return SerialConfig{
		Port:        port,
		BaudRate:    19200,
		ReadTimeout: time.Second,
	}
}

// OpenSerial opens the serial device 8N1 with the configured read timeout.
func OpenSerial(cfg SerialConfig) (Channel, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("open serial: no port given")
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Port, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
	}
	return port, nil
}

type loggedChannel struct {
	Channel
	raw log.RawLogger
}

// WithRawLogging returns ch with every read and written chunk sent to raw.
func WithRawLogging(ch Channel, raw log.RawLogger) Channel {
	if raw == nil {
		return ch
	}
	return &loggedChannel{Channel: ch, raw: raw}
}

func (c *loggedChannel) Read(p []byte) (int, error) {
	n, err := c.Channel.Read(p)
	if n > 0 {
		c.raw.Log(log.BridgeToHost, p[:n])
	}
	return n, err
}

func (c *loggedChannel) Write(p []byte) (int, error) {
	n, err := c.Channel.Write(p)
	if n > 0 {
		c.raw.Log(log.HostToBridge, p[:n])
	}
	return n, err
}

// readByte reads at most one byte. ok is false when the read timed out.
func readByte(ch Channel) (b byte, ok bool, err error) {
	var buf [1]byte
	n, err := ch.Read(buf[:])
	if n == 1 {
		return buf[0], true, nil
	}
	if err == io.EOF {
		err = nil
	}
	return 0, false, err
}
