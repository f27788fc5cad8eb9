package cmd

import (
	"os"
	"testing"
	"time"

	"github.com/Alia5/padbridge/bridge"
	"github.com/Alia5/padbridge/device/switchpad"
	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*CLI, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("padbridge"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	_, err = parser.Parse(args)
	return &cli, err
}

func TestParsePressDefaults(t *testing.T) {
	cli, err := parse(t, "press", "--serial.port", "/dev/ttyUSB0", "A", "dpad_r")
	require.NoError(t, err)

	p := cli.Press
	assert.Equal(t, "/dev/ttyUSB0", p.Link.Serial.Port)
	assert.Equal(t, 19200, p.Link.Serial.BaudRate)
	assert.Equal(t, time.Second, p.Link.Serial.ReadTimeout)
	assert.Equal(t, bridge.DefaultConfig(), p.Link.Bridge)
	assert.Equal(t, uint8(128), p.LX)
	assert.Equal(t, 1, p.Repeat)
	assert.Equal(t, "info", cli.Log.Level)

	state, err := p.state()
	require.NoError(t, err)
	assert.Equal(t, switchpad.NewInputState(switchpad.ButtonA, switchpad.DPadRight), state)
}

func TestParseEnvironment(t *testing.T) {
	t.Setenv("PADBRIDGE_PORT", "/dev/ttyACM1")
	t.Setenv("PADBRIDGE_HANDSHAKE", "auto")
	t.Setenv("PADBRIDGE_RELAY_ADDR", "127.0.0.1:9000")

	cli, err := parse(t, "serve", "--bridge.max-attempts", "0")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", cli.Serve.Link.Serial.Port)
	assert.Equal(t, bridge.StrategyAuto, cli.Serve.Link.Bridge.Strategy)
	assert.Equal(t, 0, cli.Serve.Link.Bridge.MaxAttempts)
	assert.Equal(t, "127.0.0.1:9000", cli.Serve.Relay.Addr)
}

func TestParseRejects(t *testing.T) {
	type testCase struct {
		name    string
		args    []string
		wantErr string
	}

	cases := []testCase{
		{name: "unknown input", args: []string{"press", "--serial.port", "x", "A", "JUMP"}, wantErr: `unknown input name: "JUMP"`},
		{name: "repeat", args: []string{"press", "--serial.port", "x", "--repeat", "0", "A"}, wantErr: "--repeat must be at least 1"},
		{name: "non-ascii text", args: []string{"display", "--serial.port", "x", "héllo"}, wantErr: bridge.ErrNonASCII.Error()},
		{name: "strategy", args: []string{"handshake", "--serial.port", "x", "--bridge.strategy", "strawberry"}, wantErr: "--bridge.strategy"},
		{name: "missing port", args: []string{"display", "hi"}, wantErr: "--serial.port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PADBRIDGE_PORT", "")
			require.NoError(t, os.Unsetenv("PADBRIDGE_PORT"))
			_, err := parse(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseDisplayJoinsWords(t *testing.T) {
	cli, err := parse(t, "display", "--serial.port", "x", "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", cli.Display.text())
}
