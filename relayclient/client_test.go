package relayclient_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/Alia5/padbridge/bridge"
	"github.com/Alia5/padbridge/device/switchpad"
	"github.com/Alia5/padbridge/relayclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture accepts one connection and returns everything it receives.
func capture(t *testing.T) (string, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			out <- nil
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		out <- data
	}()
	return ln.Addr().String(), out
}

func received(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("no data received")
		return nil
	}
}

func TestClientFrames(t *testing.T) {
	addr, out := capture(t)
	c, err := relayclient.Dial(t.Context(), addr, nil)
	require.NoError(t, err)

	require.NoError(t, c.Press(time.Millisecond, switchpad.ButtonA, switchpad.DPadRight))
	require.NoError(t, c.Display("hi"))
	require.NoError(t, c.Close())

	data := received(t, out)
	pressed := switchpad.NewInputState(switchpad.ButtonA, switchpad.DPadRight)
	neutral := switchpad.Neutral()
	want, err := pressed.MarshalBinary()
	require.NoError(t, err)
	release, err := neutral.MarshalBinary()
	require.NoError(t, err)
	want = append(want, release...)
	want = append(want, []byte(bridge.DisplaySentinel+"hi\x00")...)

	assert.Equal(t, want, data)
	assert.Equal(t, []byte{0x00, 0x04, 0x02, 0x80, 0x80, 0x80, 0x80, 0x00, 0x3c}, data[:switchpad.PacketSize])
}

func TestClientDisplayRejects(t *testing.T) {
	addr, out := capture(t)
	c, err := relayclient.Dial(t.Context(), addr, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Display("a\x00b"), relayclient.ErrTextContainsNUL)
	assert.ErrorIs(t, c.Display("ünïcode"), bridge.ErrNonASCII)
	require.NoError(t, c.Close())

	assert.Empty(t, received(t, out))
}

func TestDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = relayclient.Dial(t.Context(), addr, &relayclient.Config{DialTimeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial: ")
}
