// Package codec translates between the hex text used on the wire and raw bytes.
package codec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const prefix = "0x"

var ErrMalformedHex = errors.New("malformed hex")

// Hasher produces the digest used by the raw-message variants.
type Hasher interface {
	Hash(data []byte) []byte
}

// DecodeHex decodes text with or without a leading "0x".
// A bare "0x" is not treated as a prefix and fails to decode.
func DecodeHex(text string) ([]byte, error) {
	if len(text) > len(prefix) && strings.HasPrefix(text, prefix) {
		text = text[len(prefix):]
	}
	b, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return b, nil
}

// EncodeHex always emits the "0x" prefix followed by lowercase hex.
func EncodeHex(b []byte) string {
	return prefix + hex.EncodeToString(b)
}

// DigestOf hashes the bytes encoded in rawHex and returns the digest as hex.
func DigestOf(h Hasher, rawHex string) (string, error) {
	raw, err := DecodeHex(rawHex)
	if err != nil {
		return "", err
	}
	return EncodeHex(h.Hash(raw)), nil
}
