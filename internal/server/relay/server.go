// Package relay lets a remote client drive the bridge over TCP.
//
// The wire format towards the relay mirrors the bridge wire: a client sends
// 9-byte input packets with their CRC, or the display sentinel followed by
// text and a NUL terminator. Only one client is served at a time.
package relay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alia5/padbridge/bridge"
	"github.com/Alia5/padbridge/device/switchpad"
	"github.com/Alia5/padbridge/internal/server/relay/auth"
)

// Bridge is what the relay forwards to. *bridge.Session implements it.
type Bridge interface {
	Send(state switchpad.InputState) error
	WriteDisplay(text string) error
}

var errTextTooLong = errors.New("display text too long")

type Server struct {
	cfg    Config
	bridge Bridge
	logger *slog.Logger
	key    []byte

	ln      net.Listener
	ready   chan struct{}
	busy    atomic.Bool
	wg      sync.WaitGroup
	mu      sync.Mutex
	active  net.Conn
	closing atomic.Bool
}

func New(cfg Config, b Bridge, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 64
	}
	s := &Server{cfg: cfg, bridge: b, logger: logger, ready: make(chan struct{})}
	if cfg.Password != "" {
		key, err := auth.DeriveKey(cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("derive relay key: %w", err)
		}
		s.key = key
	}
	return s, nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.ln = ln
	close(s.ready)
	s.logger.Info("Relay listening", "addr", ln.Addr(), "auth", s.key != nil)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				s.logger.Info("Relay stopped")
				return nil
			}
			s.logger.Error("Accept error", "error", err)
			continue
		}
		if !s.busy.CompareAndSwap(false, true) {
			s.logger.Warn("Rejecting client, another client is connected", "remote", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.busy.Store(false)
			s.serveClient(conn)
		}()
	}
}

// Close stops accepting, disconnects the current client and waits until it
// no longer touches the bridge.
func (s *Server) Close() error {
	s.closing.Store(true)
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.mu.Lock()
	if s.active != nil {
		_ = s.active.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

func (s *Server) serveClient(conn net.Conn) {
	logger := s.logger.With("remote", conn.RemoteAddr())
	logger.Info("Client connected")

	s.mu.Lock()
	s.active = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	err := s.handle(conn, logger)
	if err != nil && !isDisconnect(err) {
		logger.Error("Client stream failed", "error", err)
	}

	if err := s.bridge.Send(switchpad.Neutral()); err != nil {
		logger.Error("Failed to release inputs", "error", err)
	}
	logger.Info("Client disconnected")
}

func (s *Server) handle(conn net.Conn, logger *slog.Logger) error {
	r := bufio.NewReader(conn)
	if s.key != nil {
		s.setDeadline(conn)
		clientNonce, serverNonce, err := auth.ServerHandshake(r, conn, s.key)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		sealed, err := auth.WrapConn(conn, auth.DeriveSessionKey(s.key, clientNonce, serverNonce), auth.ServerSide)
		if err != nil {
			return err
		}
		if r.Buffered() > 0 {
			return fmt.Errorf("auth: unexpected data after handshake")
		}
		r = bufio.NewReader(sealed)
		logger.Debug("Client authenticated")
	}
	return s.forward(conn, r, logger)
}

// forward decodes frames from r until the client goes away. A packet that
// fails its checksum is skipped one byte at a time until frames line up again.
func (s *Server) forward(conn net.Conn, r *bufio.Reader, logger *slog.Logger) error {
	inSync := true
	for {
		s.setDeadline(conn)
		head, err := r.Peek(switchpad.PacketSize)
		if err != nil {
			return err
		}

		if bridge.IsDisplayFrame(head) {
			_, _ = r.Discard(len(bridge.DisplaySentinel))
			text, err := s.readText(r)
			if err != nil {
				return err
			}
			if err := s.bridge.WriteDisplay(text); err != nil {
				if errors.Is(err, bridge.ErrNonASCII) {
					logger.Warn("Dropping display text", "error", err)
					continue
				}
				return fmt.Errorf("forward display text: %w", err)
			}
			inSync = true
			continue
		}

		var state switchpad.InputState
		if err := state.UnmarshalBinary(head); err != nil {
			if inSync {
				logger.Warn("Dropping corrupt frame, resynchronising", "error", err)
			}
			inSync = false
			_, _ = r.Discard(1)
			continue
		}
		_, _ = r.Discard(switchpad.PacketSize)
		if !inSync {
			logger.Info("Frames back in sync")
			inSync = true
		}
		if err := s.bridge.Send(state); err != nil {
			return fmt.Errorf("forward packet: %w", err)
		}
	}
}

func (s *Server) readText(r *bufio.Reader) (string, error) {
	buf := make([]byte, 0, s.cfg.MaxTextLength)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		if len(buf) == s.cfg.MaxTextLength {
			return "", errTextTooLong
		}
		buf = append(buf, b)
	}
}

func (s *Server) setDeadline(conn net.Conn) {
	if s.cfg.IdleTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	}
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
