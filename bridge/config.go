package bridge

import (
	"fmt"
	"time"
)

// Strategy selects which handshake variants Establish tries on each attempt.
type Strategy string

const (
	StrategyVanilla   Strategy = "vanilla"
	StrategyChocolate Strategy = "chocolate"
	// StrategyAuto runs a full Chocolate attempt and, if it fails, a full
	// Vanilla attempt.
	StrategyAuto Strategy = "auto"
)

func (s Strategy) variants() ([]Variant, error) {
	switch s {
	case StrategyVanilla, "":
		return []Variant{Vanilla}, nil
	case StrategyChocolate:
		return []Variant{Chocolate}, nil
	case StrategyAuto:
		return []Variant{Chocolate, Vanilla}, nil
	default:
		return nil, fmt.Errorf("unknown handshake strategy %q", string(s))
	}
}

// Config holds the protocol timings and the handshake retry policy.
type Config struct {
	Strategy      Strategy      `help:"Handshake variant to use" enum:"vanilla,chocolate,auto" default:"vanilla" env:"PADBRIDGE_HANDSHAKE"`
	SettleDelay   time.Duration `help:"Delay after clearing buffers before the first handshake byte" default:"100ms"`
	StepDelay     time.Duration `help:"Delay between a handshake write and its reply read" default:"50ms"`
	MaxAttempts   int           `help:"Handshake attempts before giving up; 0 retries until cancelled" default:"10" env:"PADBRIDGE_HANDSHAKE_ATTEMPTS"`
	RetryDelay    time.Duration `help:"Initial delay between handshake attempts" default:"500ms"`
	MaxRetryDelay time.Duration `help:"Upper bound of the exponential handshake backoff" default:"8s"`
	ReadyDelay    time.Duration `help:"Wait after a successful handshake before the bridge accepts packets" default:"3s"`
	PressDuration time.Duration `help:"Default hold time of a button press" default:"300ms"`
}

func DefaultConfig() Config {
	return Config{
		Strategy:      StrategyVanilla,
		SettleDelay:   100 * time.Millisecond,
		StepDelay:     50 * time.Millisecond,
		MaxAttempts:   10,
		RetryDelay:    500 * time.Millisecond,
		MaxRetryDelay: 8 * time.Second,
		ReadyDelay:    3 * time.Second,
		PressDuration: 300 * time.Millisecond,
	}
}

// backoff returns the delay after the given failed attempt (1-based).
func (c Config) backoff(attempt int) time.Duration {
	d := c.RetryDelay
	for i := 1; i < attempt && d < c.MaxRetryDelay; i++ {
		d *= 2
	}
	if c.MaxRetryDelay > 0 && d > c.MaxRetryDelay {
		d = c.MaxRetryDelay
	}
	return d
}
