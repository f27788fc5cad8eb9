package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Alia5/padbridge/bridge"
	"github.com/Alia5/padbridge/internal/log"
)

// DisplayCmd writes one line of text to the bridge display.
type DisplayCmd struct {
	Link   Link          `embed:""`
	Text   []string      `arg:"" optional:"" help:"Words to show; nothing clears the display"`
	Linger time.Duration `help:"Keep the port open this long after writing" default:"0s"`
}

func (c *DisplayCmd) text() string { return strings.Join(c.Text, " ") }

func (c *DisplayCmd) Validate() error {
	_, err := bridge.EncodeDisplayText(c.text())
	return err
}

func (c *DisplayCmd) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := c.Link.connect(ctx, logger, rawLogger)
	if err != nil {
		return err
	}
	defer closeSession(s, logger)

	if err := s.WriteDisplay(c.text()); err != nil {
		return err
	}
	logger.Info("Display updated", "text", c.text())

	if c.Linger > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(c.Linger):
		}
	}
	return nil
}
