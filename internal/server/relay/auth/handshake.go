package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

const (
	// Magic opens every authenticated relay connection.
	Magic     = "PBR1\x00"
	NonceSize = 32
	proofTag  = "padbridge-relay-auth-v1"
)

var (
	replyOK     = []byte("OK\x00")
	replyDenied = []byte("NO\x00")
)

var ErrUnauthorized = errors.New("relay: invalid password")

func proof(key, nonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(proofTag))
	_, _ = mac.Write(nonce)
	return mac.Sum(nil)
}

// ClientHandshake sends magic, client nonce and proof, then reads the
// server's verdict and nonce.
func ClientHandshake(r io.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	if len(key) == 0 {
		return nil, nil, fmt.Errorf("handshake: missing key")
	}
	clientNonce = make([]byte, NonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, nil, fmt.Errorf("generate client nonce: %w", err)
	}

	msg := make([]byte, 0, len(Magic)+NonceSize+sha256.Size)
	msg = append(msg, Magic...)
	msg = append(msg, clientNonce...)
	msg = append(msg, proof(key, clientNonce)...)
	if _, err := w.Write(msg); err != nil {
		return nil, nil, fmt.Errorf("write handshake: %w", err)
	}

	verdict := make([]byte, len(replyOK))
	if _, err := io.ReadFull(r, verdict); err != nil {
		return nil, nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(verdict) != string(replyOK) {
		if string(verdict) == string(replyDenied) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("invalid handshake response %q", verdict)
	}

	serverNonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, nil, fmt.Errorf("read server nonce: %w", err)
	}
	return clientNonce, serverNonce, nil
}

// ServerHandshake verifies a client's handshake and answers it. A client
// with a wrong proof receives the denial reply and ErrUnauthorized is returned.
func ServerHandshake(r *bufio.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	if len(key) == 0 {
		return nil, nil, fmt.Errorf("handshake: missing key")
	}
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, nil, fmt.Errorf("read handshake magic: %w", err)
	}
	if string(magic) != Magic {
		_, _ = w.Write(replyDenied)
		return nil, nil, fmt.Errorf("unexpected handshake magic %q", magic)
	}

	clientNonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(r, clientNonce); err != nil {
		return nil, nil, fmt.Errorf("read client nonce: %w", err)
	}
	clientProof := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, clientProof); err != nil {
		return nil, nil, fmt.Errorf("read client proof: %w", err)
	}
	if !hmac.Equal(clientProof, proof(key, clientNonce)) {
		_, _ = w.Write(replyDenied)
		return nil, nil, ErrUnauthorized
	}

	serverNonce = make([]byte, NonceSize)
	if _, err := rand.Read(serverNonce); err != nil {
		return nil, nil, fmt.Errorf("generate server nonce: %w", err)
	}
	if _, err := w.Write(append(append([]byte(nil), replyOK...), serverNonce...)); err != nil {
		return nil, nil, fmt.Errorf("write response: %w", err)
	}
	return clientNonce, serverNonce, nil
}
