package bridge_test

import (
	"bytes"
	"testing"

	"github.com/Alia5/padbridge/bridge"
	"github.com/Alia5/padbridge/internal/log"
	padTesting "github.com/Alia5/padbridge/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRawLogging(t *testing.T) {
	var buf bytes.Buffer
	ch := bridge.WithRawLogging(padTesting.NewScriptedChannel(padTesting.VanillaBridge()), log.NewRaw(&buf))

	_, err := bridge.Handshake(t.Context(), ch, bridge.Vanilla, fastConfig(), nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "H->B 1 bytes: ff\n")
	assert.Contains(t, out, "B->H 1 bytes: ff\n")
	assert.Contains(t, out, "H->B 1 bytes: 33\n")
	assert.Contains(t, out, "B->H 1 bytes: cc\n")
	assert.Contains(t, out, "H->B 1 bytes: cc\n")
	assert.Contains(t, out, "B->H 1 bytes: 33\n")
	assert.Equal(t, 6, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestWithRawLoggingNil(t *testing.T) {
	ch := padTesting.NewScriptedChannel(nil)
	assert.Same(t, bridge.Channel(ch), bridge.WithRawLogging(ch, nil))
}

func TestOpenSerialRequiresPort(t *testing.T) {
	_, err := bridge.OpenSerial(bridge.SerialConfig{})
	assert.EqualError(t, err, "open serial: no port given")
}

func TestDefaultConfig(t *testing.T) {
	cfg := bridge.DefaultConfig()
	assert.Equal(t, bridge.StrategyVanilla, cfg.Strategy)
	assert.Equal(t, "100ms", cfg.SettleDelay.String())
	assert.Equal(t, "50ms", cfg.StepDelay.String())
	assert.Equal(t, "500ms", cfg.RetryDelay.String())
	assert.Equal(t, "3s", cfg.ReadyDelay.String())
	assert.Equal(t, "300ms", cfg.PressDuration.String())

	sc := bridge.DefaultSerialConfig("/dev/ttyACM0")
	assert.Equal(t, 19200, sc.BaudRate)
	assert.Equal(t, "1s", sc.ReadTimeout.String())
}
