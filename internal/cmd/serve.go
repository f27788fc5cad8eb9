package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Alia5/padbridge/bridge"
	"github.com/Alia5/padbridge/internal/configpaths"
	"github.com/Alia5/padbridge/internal/log"
	"github.com/Alia5/padbridge/internal/server/relay"
	"github.com/Alia5/padbridge/internal/server/relay/auth"
)

const passwordFileName = "relay.key.txt"

const silentAckThreshold = 10

// ServeCmd keeps a bridge session open and forwards packets from relay
// clients to it.
type ServeCmd struct {
	Link  Link         `embed:""`
	Relay relay.Config `embed:"" prefix:"relay."`
	Auth  bool         `help:"Require a password; without --relay.password one is generated and stored in the config directory" env:"PADBRIDGE_RELAY_AUTH"`
}

// Run is called by Kong when the serve command is executed.
func (c *ServeCmd) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Auth && c.Relay.Password == "" {
		dir, err := configpaths.DefaultConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve password file path: %w", err)
		}
		pwd, err := loadOrCreatePassword(filepath.Join(dir, passwordFileName), logger)
		if err != nil {
			return err
		}
		c.Relay.Password = pwd
	}

	watch := &ackWatch{logger: logger, threshold: silentAckThreshold}
	s, err := c.Link.connect(ctx, logger, rawLogger, bridge.WithAckObserver(watch.observe))
	if err != nil {
		return err
	}
	defer closeSession(s, logger)

	if err := runRelay(ctx, c.Relay, s, logger); err != nil {
		return err
	}
	st := s.Stats()
	logger.Info("Session finished", "packets", st.PacketsSent, "display_writes", st.DisplayWrites, "ack_mismatches", st.AckMismatches)
	return nil
}

// runRelay serves relay clients until ctx is done or the listener fails.
func runRelay(ctx context.Context, cfg relay.Config, b relay.Bridge, logger *slog.Logger) error {
	srv, err := relay.New(cfg, b, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-srv.Ready():
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down relay")
		_ = srv.Close()
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// loadOrCreatePassword reads the relay password from path, generating and
// storing a new one when the file does not exist.
func loadOrCreatePassword(path string, logger *slog.Logger) (string, error) {
	if b, err := os.ReadFile(path); err == nil {
		if pwd := strings.TrimSpace(string(b)); pwd != "" {
			return pwd, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read relay password: %w", err)
	}

	pwd, err := auth.GeneratePassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate relay password: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config dir for password file: %w", err)
	}
	if err := os.WriteFile(path, []byte(pwd), 0o600); err != nil {
		return "", fmt.Errorf("failed to write relay password: %w", err)
	}
	logger.Info("Generated relay password", "path", path)
	logger.Info("-------------------------------------")
	logger.Info(pwd)
	logger.Info("-------------------------------------")
	return pwd, nil
}

// ackWatch warns once when the bridge stops acknowledging packets and again
// when it recovers. Single missing acks are normal and only counted.
type ackWatch struct {
	logger    *slog.Logger
	threshold int
	missing   int
}

func (w *ackWatch) observe(ev bridge.AckEvent) {
	if ev.OK() {
		if w.missing >= w.threshold {
			w.logger.Info("Bridge acknowledges packets again", "missed", w.missing)
		}
		w.missing = 0
		return
	}
	w.missing++
	if w.missing == w.threshold {
		w.logger.Warn("Bridge is not acknowledging packets", "missed", w.missing)
	}
}
