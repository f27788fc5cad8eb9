package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/padbridge/device/switchpad"
	"github.com/Alia5/padbridge/internal/log"
)

// PressCmd sends one pressed state, holds it and releases to neutral.
type PressCmd struct {
	Link     Link          `embed:""`
	Inputs   []string      `arg:"" optional:"" help:"Inputs to press, e.g. A DPAD_R ZL"`
	Hold     time.Duration `help:"Hold time; 0 uses --bridge.press-duration" default:"0s"`
	LX       uint8         `name:"lx" help:"Left stick X" default:"128"`
	LY       uint8         `name:"ly" help:"Left stick Y" default:"128"`
	RX       uint8         `name:"rx" help:"Right stick X" default:"128"`
	RY       uint8         `name:"ry" help:"Right stick Y" default:"128"`
	Repeat   int           `help:"Number of presses" default:"1"`
	Interval time.Duration `help:"Pause between repeated presses" default:"500ms"`
}

// Validate rejects unknown input names before the serial port is touched.
func (c *PressCmd) Validate() error {
	if c.Repeat < 1 {
		return errors.New("--repeat must be at least 1")
	}
	_, err := c.state()
	return err
}

func (c *PressCmd) state() (switchpad.InputState, error) {
	inputs, err := switchpad.ParseInputs(c.Inputs...)
	if err != nil {
		return switchpad.InputState{}, err
	}
	s := switchpad.NewInputState(inputs...)
	s.LX, s.LY, s.RX, s.RY = c.LX, c.LY, c.RX, c.RY
	return s, nil
}

func (c *PressCmd) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	state, err := c.state()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := c.Link.connect(ctx, logger, rawLogger)
	if err != nil {
		return err
	}
	defer closeSession(s, logger)

	hold := c.Hold
	if hold <= 0 {
		hold = s.Config().PressDuration
	}
	for i := 0; i < c.Repeat; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.Interval):
			}
		}
		logger.Info("Pressing", "state", state.String(), "hold", hold)
		if err := s.Hold(state, hold); err != nil {
			return err
		}
	}
	return nil
}
