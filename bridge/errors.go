package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady        = errors.New("bridge link is not ready")
	ErrClosed          = errors.New("bridge session is closed")
	ErrHandshakeFailed = errors.New("bridge handshake failed")
	ErrNonASCII        = errors.New("display text is not 7-bit ASCII")
)

// HandshakeError reports a handshake step whose reply did not match.
// Received is empty when the read timed out.
type HandshakeError struct {
	Variant  Variant
	Step     int
	Sent     byte
	Expected byte
	Received []byte
}

func (e *HandshakeError) Error() string {
	got := "no data"
	if len(e.Received) > 0 {
		got = fmt.Sprintf("%x", e.Received)
	}
	if e.Variant == Chocolate && e.Step == len(chocolateSteps) {
		return fmt.Sprintf("%s handshake failed at step %d: no controller type received", e.Variant, e.Step)
	}
	return fmt.Sprintf("%s handshake failed at step %d: sent 0x%02x, expected 0x%02x, received: %s",
		e.Variant, e.Step, e.Sent, e.Expected, got)
}
