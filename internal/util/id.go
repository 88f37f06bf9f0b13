package util

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// NewID returns a URL-safe hex string ID.
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

const sessionKeyLength = 40

const sessionKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewSessionKey returns a 40-character alphanumeric key suitable for
// identifying a chat session. Keys are generated from crypto/rand.
func NewSessionKey() string {
	buf := make([]byte, sessionKeyLength)
	max := big.NewInt(int64(len(sessionKeyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// rand.Int only fails when the reader does; fall back to hex.
			return NewID()
		}
		buf[i] = sessionKeyAlphabet[n.Int64()]
	}
	return string(buf)
}
