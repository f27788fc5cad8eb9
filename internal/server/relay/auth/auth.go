// Package auth implements the optional password handshake of the relay and
// the encrypted framing used after it.
package auth

import (
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"
)

const (
	GeneratedPasswordLength = 16
	passwordAlphabet        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	pbkdf2Iterations        = 100000
	pbkdf2Salt              = "padbridge-relay-key-v1"
	sessionContext          = "padbridge-relay-session-v1"
)

var ErrEmptyPassword = errors.New("password cannot be empty")

// GeneratePassword returns a random base62 password.
func GeneratePassword() (string, error) {
	raw := make([]byte, GeneratedPasswordLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	out := make([]byte, GeneratedPasswordLength)
	for i, b := range raw {
		out[i] = passwordAlphabet[int(b)%len(passwordAlphabet)]
	}
	return string(out), nil
}

// DeriveKey stretches a password to a 32 byte key.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return pbkdf2.Key(sha256.New, password, []byte(pbkdf2Salt), pbkdf2Iterations, 32)
}

// DeriveSessionKey mixes the long-term key with both nonces.
func DeriveSessionKey(key, clientNonce, serverNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(clientNonce)
	h.Write(serverNonce)
	h.Write([]byte(sessionContext))
	return h.Sum(nil)
}
