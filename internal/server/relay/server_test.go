package relay_test

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/Alia5/padbridge/device/switchpad"
	"github.com/Alia5/padbridge/internal/server/relay"
	"github.com/Alia5/padbridge/internal/server/relay/auth"
	padTesting "github.com/Alia5/padbridge/internal/testing"
	"github.com/Alia5/padbridge/relayclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T, cfg relay.Config, b relay.Bridge) *relay.Server {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	srv, err := relay.New(cfg, b, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("relay failed to start: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not start")
	}
	t.Cleanup(func() {
		_ = srv.Close()
		<-errCh
	})
	return srv
}

func waitStates(t *testing.T, b *padTesting.RecordingBridge, n int) []switchpad.InputState {
	t.Helper()
	require.Eventually(t, func() bool { return len(b.States()) >= n }, 2*time.Second, 5*time.Millisecond)
	return b.States()
}

func TestRelayForwardsPacketsAndText(t *testing.T) {
	b := &padTesting.RecordingBridge{}
	srv := startRelay(t, relay.Config{}, b)

	c, err := relayclient.Dial(t.Context(), srv.Addr().String(), nil)
	require.NoError(t, err)

	require.NoError(t, c.SendInputs(switchpad.ButtonA, switchpad.DPadRight))
	require.NoError(t, c.Display("hello"))
	require.NoError(t, c.Send(switchpad.Neutral()))
	require.NoError(t, c.Close())

	states := waitStates(t, b, 3)
	assert.Equal(t, switchpad.NewInputState(switchpad.ButtonA, switchpad.DPadRight), states[0])
	assert.True(t, states[1].IsNeutral())
	assert.True(t, states[2].IsNeutral(), "relay releases everything when the client leaves")
	assert.Equal(t, []string{"hello"}, b.Texts())
}

func TestRelayEmptyDisplayText(t *testing.T) {
	b := &padTesting.RecordingBridge{}
	srv := startRelay(t, relay.Config{}, b)

	c, err := relayclient.Dial(t.Context(), srv.Addr().String(), nil)
	require.NoError(t, err)
	require.NoError(t, c.Display(""))
	require.NoError(t, c.Close())

	waitStates(t, b, 1)
	assert.Equal(t, []string{" "}, b.Texts())

	assert.ErrorIs(t, c.Display("a\x00b"), relayclient.ErrTextContainsNUL)
}

func TestRelayResyncsAfterCorruptFrame(t *testing.T) {
	b := &padTesting.RecordingBridge{}
	srv := startRelay(t, relay.Config{}, b)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)

	bad := []byte{0x00, 0x04, 0x02, 0x80, 0x80, 0x80, 0x80, 0x00, 0xFF}
	good := []byte{0x00, 0x04, 0x02, 0x80, 0x80, 0x80, 0x80, 0x00, 0x3C}
	_, err = conn.Write(append(bad, good...))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	states := waitStates(t, b, 2)
	require.Len(t, states, 2)
	assert.Equal(t, switchpad.NewInputState(switchpad.ButtonA, switchpad.DPadRight), states[0])
	assert.True(t, states[1].IsNeutral())
}

func TestRelayDropsOverlongText(t *testing.T) {
	b := &padTesting.RecordingBridge{}
	srv := startRelay(t, relay.Config{MaxTextLength: 4}, b)

	c, err := relayclient.Dial(t.Context(), srv.Addr().String(), nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Display("too long"))

	states := waitStates(t, b, 1)
	assert.True(t, states[0].IsNeutral())
	assert.Empty(t, b.Texts())
}

func TestRelayServesOneClientAtATime(t *testing.T) {
	b := &padTesting.RecordingBridge{}
	srv := startRelay(t, relay.Config{}, b)

	first, err := relayclient.Dial(t.Context(), srv.Addr().String(), nil)
	require.NoError(t, err)
	require.NoError(t, first.SendInputs(switchpad.ButtonB))
	waitStates(t, b, 1)

	second, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = second.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF, "second client is turned away")

	require.NoError(t, first.Close())
	waitStates(t, b, 2)
}

func TestRelayWithPassword(t *testing.T) {
	b := &padTesting.RecordingBridge{}
	srv := startRelay(t, relay.Config{Password: "s3cret"}, b)

	t.Run("right password", func(t *testing.T) {
		c, err := relayclient.Dial(t.Context(), srv.Addr().String(), &relayclient.Config{
			DialTimeout: 2 * time.Second,
			Password:    "s3cret",
		})
		require.NoError(t, err)
		require.NoError(t, c.SendInputs(switchpad.ButtonHome))
		require.NoError(t, c.Display("authed"))
		require.NoError(t, c.Close())

		states := waitStates(t, b, 2)
		assert.True(t, states[0].IsPressed(switchpad.ButtonHome))
		assert.Equal(t, []string{"authed"}, b.Texts())
	})

	t.Run("wrong password", func(t *testing.T) {
		require.Eventually(t, func() bool { return len(b.States()) >= 2 }, time.Second, 5*time.Millisecond)
		_, err := relayclient.Dial(t.Context(), srv.Addr().String(), &relayclient.Config{
			DialTimeout: 2 * time.Second,
			Password:    "guess",
		})
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("unauthenticated frames are refused", func(t *testing.T) {
		before := len(b.States())
		conn, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer conn.Close()
		frame, _ := (&switchpad.InputState{Buttons: uint16(switchpad.ButtonA), DPad: switchpad.DPadCenter}).MarshalBinary()
		_, err = conn.Write(frame)
		require.NoError(t, err)

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		reply, _ := io.ReadAll(conn)
		assert.Equal(t, "NO\x00", string(reply))

		states := waitStates(t, b, before+1)
		for _, s := range states[before:] {
			assert.True(t, s.IsNeutral())
		}
	})
}

func TestRelayCloseDisconnectsClient(t *testing.T) {
	b := &padTesting.RecordingBridge{}
	cfg := relay.Config{Addr: "127.0.0.1:0"}
	srv, err := relay.New(cfg, b, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	<-srv.Ready()

	c, err := relayclient.Dial(t.Context(), srv.Addr().String(), nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SendInputs(switchpad.ButtonZR))
	waitStates(t, b, 1)

	require.NoError(t, srv.Close())
	require.NoError(t, <-errCh)
	states := b.States()
	require.Len(t, states, 2)
	assert.True(t, states[1].IsNeutral())
}
