package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

const maxSealedFrame = 64 * 1024

// Side tags the nonces a peer seals with, so the two directions never share
// a nonce under the same session key.
type Side byte

const (
	ClientSide Side = 0x01
	ServerSide Side = 0x02
)

func (s Side) peer() Side {
	if s == ClientSide {
		return ServerSide
	}
	return ClientSide
}

var errReplayedNonce = errors.New("sealed frame: unexpected nonce")

// SealedConn frames every Write as length | nonce | ciphertext.
type SealedConn struct {
	net.Conn
	aead cipher.AEAD
	side Side

	writeMu sync.Mutex
	sendCtr uint64
	recvCtr uint64
	plain   bytes.Buffer
}

func WrapConn(conn net.Conn, sessionKey []byte, side Side) (*SealedConn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &SealedConn{Conn: conn, aead: aead, side: side}, nil
}

func nonceFor(side Side, ctr uint64) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	n[0] = byte(side)
	binary.BigEndian.PutUint64(n[4:], ctr)
	return n
}

func (c *SealedConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	nonce := nonceFor(c.side, c.sendCtr)
	c.sendCtr++
	sealed := c.aead.Seal(nil, nonce, p, nil)

	frame := make([]byte, 4, 4+len(nonce)+len(sealed))
	binary.BigEndian.PutUint32(frame, uint32(len(nonce)+len(sealed)))
	frame = append(frame, nonce...)
	frame = append(frame, sealed...)
	if _, err := c.Conn.Write(frame); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *SealedConn) Read(p []byte) (int, error) {
	for c.plain.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(hdr[:])
		if size < chacha20poly1305.NonceSize+chacha20poly1305.Overhead || size > maxSealedFrame {
			return 0, fmt.Errorf("sealed frame: bad length %d", size)
		}
		frame := make([]byte, size)
		if _, err := io.ReadFull(c.Conn, frame); err != nil {
			return 0, err
		}
		nonce := frame[:chacha20poly1305.NonceSize]
		if !bytes.Equal(nonce, nonceFor(c.side.peer(), c.recvCtr)) {
			return 0, errReplayedNonce
		}
		plain, err := c.aead.Open(nil, nonce, frame[chacha20poly1305.NonceSize:], nil)
		if err != nil {
			return 0, fmt.Errorf("sealed frame: %w", err)
		}
		c.recvCtr++
		c.plain.Write(plain)
	}
	return c.plain.Read(p)
}
