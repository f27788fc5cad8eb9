package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/padbridge/bridge"
	"github.com/Alia5/padbridge/internal/log"
)

// HandshakeCmd probes the bridge: it runs the configured handshake strategy
// and prints which variant answered.
type HandshakeCmd struct {
	Link  Link `embed:""`
	Retry bool `help:"Retry with the configured backoff instead of trying once"`
}

func (c *HandshakeCmd) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := c.Link.Bridge
	if !c.Retry {
		cfg.MaxAttempts = 1
	}
	cfg.ReadyDelay = 0

	s, err := bridge.Open(c.Link.Serial, cfg, logger, rawLogger)
	if err != nil {
		return err
	}
	defer closeSession(s, logger)

	res, err := s.Establish(ctx)
	if err != nil {
		return err
	}
	fmt.Println(describeResult(res))
	return nil
}

func describeResult(res bridge.HandshakeResult) string {
	if !res.HasControllerType {
		return fmt.Sprintf("variant=%s", res.Variant)
	}
	return fmt.Sprintf("variant=%s controller_type=0x%02x", res.Variant, res.ControllerType)
}
