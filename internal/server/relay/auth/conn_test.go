package auth_test

import (
	"io"
	"net"
	"testing"

	"github.com/Alia5/padbridge/internal/server/relay/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedPair(t *testing.T, clientKey, serverKey []byte) (client, server *auth.SealedConn) {
	t.Helper()
	c, s := net.Pipe()
	t.Cleanup(func() {
		_ = c.Close()
		_ = s.Close()
	})
	client, err := auth.WrapConn(c, clientKey, auth.ClientSide)
	require.NoError(t, err)
	server, err = auth.WrapConn(s, serverKey, auth.ServerSide)
	require.NoError(t, err)
	return client, server
}

func TestSealedConnRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	client, server := sealedPair(t, key, key)

	go func() {
		_, _ = client.Write([]byte{0x00, 0x04, 0x02})
		_, _ = client.Write(nil)
		_, _ = client.Write([]byte("123456789hello\x00"))
	}()

	buf := make([]byte, 3)
	_, err := io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x04, 0x02}, buf)

	text := make([]byte, 15)
	_, err = io.ReadFull(server, text)
	require.NoError(t, err)
	assert.Equal(t, "123456789hello\x00", string(text))

	go func() { _, _ = server.Write([]byte("pong")) }()
	reply := make([]byte, 4)
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(reply))
}

func TestSealedConnWrongKey(t *testing.T) {
	a := make([]byte, 32)
	b := make([]byte, 32)
	b[0] = 1
	client, server := sealedPair(t, a, b)

	go func() { _, _ = client.Write([]byte("hello")) }()
	_, err := server.Read(make([]byte, 8))
	assert.ErrorContains(t, err, "sealed frame:")
}

func TestSealedConnRejectsReflectedFrames(t *testing.T) {
	key := make([]byte, 32)
	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()

	// both ends claim to be the client, so the nonces come from the wrong side
	sender, err := auth.WrapConn(c, key, auth.ClientSide)
	require.NoError(t, err)
	receiver, err := auth.WrapConn(s, key, auth.ClientSide)
	require.NoError(t, err)

	go func() { _, _ = sender.Write([]byte("hello")) }()
	_, err = receiver.Read(make([]byte, 8))
	assert.EqualError(t, err, "sealed frame: unexpected nonce")
}

func TestWrapConnBadKey(t *testing.T) {
	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()
	_, err := auth.WrapConn(c, []byte("short"), auth.ClientSide)
	assert.ErrorContains(t, err, "init cipher")
}
