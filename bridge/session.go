package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Alia5/padbridge/device/switchpad"
	"github.com/Alia5/padbridge/internal/log"
)

// AckByte is what the bridge sends back once it has consumed a packet.
const AckByte = 0x90

// AckEvent is the acknowledgement observed before a packet write.
type AckEvent struct {
	Received byte
	// NoData is set when the read timed out without a byte.
	NoData bool
}

// OK reports whether the bridge acknowledged the previous write.
func (e AckEvent) OK() bool { return !e.NoData && e.Received == AckByte }

// AckObserver is called with every acknowledgement read before a packet write.
// A bad acknowledgement never stops the write.
type AckObserver func(AckEvent)

// Stats counts traffic of a session.
type Stats struct {
	PacketsSent   uint64
	DisplayWrites uint64
	AckMismatches uint64
}

// Option configures a Session.
type Option func(*Session)

func WithAckObserver(f AckObserver) Option {
	return func(s *Session) { s.onAck = f }
}

// Session owns the channel to the bridge for its whole lifetime. It is not
// safe for concurrent use; exactly one goroutine drives it.
type Session struct {
	ch     Channel
	cfg    Config
	logger *slog.Logger

	state  LinkState
	result HandshakeResult
	onAck  AckObserver
	stats  Stats
}

// NewSession takes ownership of ch. Nobody else may read, write or close it.
func NewSession(ch Channel, cfg Config, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{ch: ch, cfg: cfg, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open opens the serial device and wraps it in a new Session. raw may be nil.
func Open(serialCfg SerialConfig, cfg Config, logger *slog.Logger, raw log.RawLogger, opts ...Option) (*Session, error) {
	ch, err := OpenSerial(serialCfg)
	if err != nil {
		return nil, err
	}
	return NewSession(WithRawLogging(ch, raw), cfg, logger, opts...), nil
}

func (s *Session) State() LinkState { return s.state }
func (s *Session) Result() HandshakeResult { return s.result }
func (s *Session) Stats() Stats { return s.stats }
func (s *Session) Config() Config { return s.cfg }

// Establish runs the handshake strategy until it succeeds, the attempt budget
// is spent or ctx ends, backing off exponentially between attempts. After a
// successful handshake it waits ReadyDelay before reporting Ready.
func (s *Session) Establish(ctx context.Context) (HandshakeResult, error) {
	switch s.state {
	case Ready:
		return s.result, nil
	case Closed:
		return HandshakeResult{}, ErrClosed
	case Failed:
		return HandshakeResult{}, ErrHandshakeFailed
	}
	variants, err := s.cfg.Strategy.variants()
	if err != nil {
		return HandshakeResult{}, err
	}

	s.state = Handshaking
	var lastErr error
	for attempt := 1; ; attempt++ {
		for _, v := range variants {
			res, err := Handshake(ctx, s.ch, v, s.cfg, s.logger)
			if err == nil {
				s.logger.Info("Handshake succeeded", "variant", v, "attempt", attempt)
				if res.HasControllerType {
					s.logger.Info("Bridge reported controller type", "type", fmt.Sprintf("0x%02x", res.ControllerType))
				}
				if err := sleep(ctx, s.cfg.ReadyDelay); err != nil {
					return HandshakeResult{}, s.fail(attempt, err)
				}
				s.result = res
				s.state = Ready
				return res, nil
			}
			if ctx.Err() != nil {
				return HandshakeResult{}, s.fail(attempt, ctx.Err())
			}
			lastErr = err
			s.logger.Warn("Handshake failed", "variant", v, "attempt", attempt, "error", err)
		}

		if s.cfg.MaxAttempts > 0 && attempt >= s.cfg.MaxAttempts {
			return HandshakeResult{}, s.fail(attempt, lastErr)
		}
		if err := sleep(ctx, s.cfg.backoff(attempt)); err != nil {
			return HandshakeResult{}, s.fail(attempt, err)
		}
	}
}

func (s *Session) fail(attempts int, cause error) error {
	s.state = Failed
	s.logger.Error("Giving up on bridge handshake", "attempts", attempts, "error", cause)
	return fmt.Errorf("%w after %d attempt(s): %w", ErrHandshakeFailed, attempts, cause)
}

func (s *Session) usable() error {
	switch s.state {
	case Ready:
		return nil
	case Closed:
		return ErrClosed
	default:
		return fmt.Errorf("%w (state %s)", ErrNotReady, s.state)
	}
}

// Send reads the acknowledgement of the previous write and then writes the
// packet for state. The packet is written whatever the acknowledgement was
// and is never resent.
func (s *Session) Send(state switchpad.InputState) error {
	if err := s.usable(); err != nil {
		return err
	}
	frame, err := state.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}
	s.observeAck()
	if _, err := s.ch.Write(frame); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	s.stats.PacketsSent++
	s.logger.Log(context.Background(), log.LevelTrace, "packet sent", "state", state.String())
	return nil
}

func (s *Session) observeAck() {
	b, ok, err := readByte(s.ch)
	if err != nil {
		s.logger.Debug("ack read failed", "error", err)
	}
	ev := AckEvent{Received: b, NoData: !ok}
	if !ev.OK() {
		s.stats.AckMismatches++
		if ev.NoData {
			s.logger.Debug("no ack from bridge before packet")
		} else {
			s.logger.Debug("unexpected ack from bridge", "received", fmt.Sprintf("0x%02x", ev.Received), "expected", fmt.Sprintf("0x%02x", AckByte))
		}
	}
	if s.onAck != nil {
		s.onAck(ev)
	}
}

// SendInputs sends a packet with inputs active on top of the neutral state.
func (s *Session) SendInputs(inputs ...switchpad.Input) error {
	return s.Send(switchpad.NewInputState(inputs...))
}

// Press holds inputs for the configured press duration and releases them.
func (s *Session) Press(inputs ...switchpad.Input) error {
	return s.Hold(switchpad.NewInputState(inputs...), s.cfg.PressDuration)
}

// PressFor holds inputs for d and releases them.
func (s *Session) PressFor(d time.Duration, inputs ...switchpad.Input) error {
	return s.Hold(switchpad.NewInputState(inputs...), d)
}

// Hold sends state, waits d and sends the neutral packet. The release is
// part of the operation; a press is never left standing on its own.
func (s *Session) Hold(state switchpad.InputState, d time.Duration) error {
	if err := s.Send(state); err != nil {
		return err
	}
	time.Sleep(d)
	if err := s.Send(switchpad.Neutral()); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// WriteDisplay pushes text to the bridge display in a single write.
func (s *Session) WriteDisplay(text string) error {
	if err := s.usable(); err != nil {
		return err
	}
	data, err := EncodeDisplayText(text)
	if err != nil {
		return err
	}
	if _, err := s.ch.Write(data); err != nil {
		return fmt.Errorf("write display text: %w", err)
	}
	s.stats.DisplayWrites++
	s.logger.Debug("display text sent", "text", text)
	return nil
}

// Close releases the channel. Further operations return ErrClosed.
func (s *Session) Close() error {
	if s.state == Closed {
		return nil
	}
	s.state = Closed
	if err := s.ch.Close(); err != nil {
		return fmt.Errorf("close channel: %w", err)
	}
	return nil
}
