package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Alia5/padbridge/internal/log"
)

// Variant is one of the two handshake sequences a bridge firmware may speak.
// Exactly one of them succeeds against a given firmware build.
type Variant int

const (
	Vanilla Variant = iota
	Chocolate
)

func (v Variant) String() string {
	switch v {
	case Vanilla:
		return "vanilla"
	case Chocolate:
		return "chocolate"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

type handshakeStep struct {
	send   byte
	expect byte
	// anyReply accepts any single byte as the reply.
	anyReply bool
}

var vanillaSteps = []handshakeStep{
	{send: 0xFF, expect: 0xFF},
	{send: 0x33, expect: 0xCC},
	{send: 0xCC, expect: 0x33},
}

var chocolateSteps = []handshakeStep{
	{send: 0xFF, expect: 0xFF},
	{send: 0x44, expect: 0xEE},
	{send: 0xEE, anyReply: true},
}

func (v Variant) steps() []handshakeStep {
	if v == Chocolate {
		return chocolateSteps
	}
	return vanillaSteps
}

// HandshakeResult describes an established link.
type HandshakeResult struct {
	Variant Variant
	// ControllerType is the byte a Chocolate bridge answers to its last step.
	ControllerType    byte
	HasControllerType bool
}

// Handshake runs a single attempt of variant v on ch. Buffers are cleared and
// the settle delay observed first; each step writes one byte, waits the step
// delay and reads at most one reply byte. A mismatching or missing reply
// yields a *HandshakeError.
func Handshake(ctx context.Context, ch Channel, v Variant, cfg Config, logger *slog.Logger) (HandshakeResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ch.ResetInputBuffer(); err != nil {
		return HandshakeResult{}, fmt.Errorf("reset input buffer: %w", err)
	}
	if err := ch.ResetOutputBuffer(); err != nil {
		return HandshakeResult{}, fmt.Errorf("reset output buffer: %w", err)
	}
	if err := sleep(ctx, cfg.SettleDelay); err != nil {
		return HandshakeResult{}, err
	}

	res := HandshakeResult{Variant: v}
	for i, st := range v.steps() {
		step := i + 1
		if _, err := ch.Write([]byte{st.send}); err != nil {
			return HandshakeResult{}, fmt.Errorf("%s handshake step %d write: %w", v, step, err)
		}
		if err := sleep(ctx, cfg.StepDelay); err != nil {
			return HandshakeResult{}, err
		}
		got, ok, err := readByte(ch)
		if err != nil {
			return HandshakeResult{}, fmt.Errorf("%s handshake step %d read: %w", v, step, err)
		}

		herr := &HandshakeError{Variant: v, Step: step, Sent: st.send, Expected: st.expect}
		if ok {
			herr.Received = []byte{got}
		}
		switch {
		case !ok:
			return HandshakeResult{}, herr
		case st.anyReply:
			res.ControllerType = got
			res.HasControllerType = true
		case got != st.expect:
			return HandshakeResult{}, herr
		}
		logger.Log(ctx, log.LevelTrace, "handshake step ok", "variant", v, "step", step, "reply", got)
	}
	return res, nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
