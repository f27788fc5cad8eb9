package cmd

import (
	"context"
	"log/slog"

	"github.com/Alia5/padbridge/bridge"
	"github.com/Alia5/padbridge/internal/log"
)

// CLI is the padbridge command tree.
type CLI struct {
	ConfigFile string    `name:"config" help:"Configuration file (JSON, YAML or TOML)" type:"path" env:"PADBRIDGE_CONFIG"`
	Log        LogConfig `embed:"" prefix:"log."`

	Handshake HandshakeCmd  `cmd:"" help:"Run the bridge handshake and report the result"`
	Press     PressCmd      `cmd:"" help:"Press a set of inputs and release them"`
	Display   DisplayCmd    `cmd:"" help:"Show text on the bridge display"`
	Serve     ServeCmd      `cmd:"" help:"Relay input packets from a TCP client to the bridge"`
	Console   ConsoleCmd    `cmd:"" help:"Drive the bridge from an interactive prompt"`
	Config    ConfigCommand `cmd:"" help:"Configuration helpers"`
}

type LogConfig struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"PADBRIDGE_LOG_LEVEL"`
	Format  string `help:"Log output format" enum:"text,json" default:"text" env:"PADBRIDGE_LOG_FORMAT"`
	File    string `help:"Also write logs to this file" env:"PADBRIDGE_LOG_FILE"`
	RawFile string `help:"Write a hex dump of all serial traffic to this file" env:"PADBRIDGE_LOG_RAW_FILE"`
}

// Link holds the serial and protocol settings of every command that talks
// to the bridge.
type Link struct {
	Serial bridge.SerialConfig `embed:"" prefix:"serial."`
	Bridge bridge.Config       `embed:"" prefix:"bridge."`
}

// connect opens the serial port and runs the handshake. The returned session
// is Ready; the caller closes it.
func (l Link) connect(ctx context.Context, logger *slog.Logger, raw log.RawLogger, opts ...bridge.Option) (*bridge.Session, error) {
	s, err := bridge.Open(l.Serial, l.Bridge, logger, raw, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("Opened serial port", "port", l.Serial.Port, "baud", l.Serial.BaudRate)
	if _, err := s.Establish(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func closeSession(s *bridge.Session, logger *slog.Logger) {
	if err := s.Close(); err != nil {
		logger.Warn("Failed to close serial port", "error", err)
	}
}
