// Package envelope implements the 128-byte SM2 signature envelope.
//
// An envelope packs a signature pair together with the signer's public key
// coordinates:
//
//	r (32, big-endian) ‖ s (32, big-endian) ‖ X (32) ‖ Y (32)
//
// r and s are right-aligned in their fields so that values shorter than 32
// bytes keep their big-endian meaning.
package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/tjfoc/gmsm/sm2"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const (
	// Size is the length of an encoded envelope.
	Size = 2*ScalarSize + CoordinatesSize

	// ScalarSize is the width of the r and s fields.
	ScalarSize = 32

	// CoordinatesSize is the width of the embedded X‖Y public key.
	CoordinatesSize = 64

	// PublicKeySize is the length of the uncompressed public key (0x04‖X‖Y).
	PublicKeySize = 1 + CoordinatesSize

	uncompressedPointTag = 0x04
)

var (
	ErrInvalidLength    = errors.New("envelope must be 128 bytes")
	ErrInvalidScalar    = errors.New("signature scalar must be non-negative and fit in 32 bytes")
	ErrInvalidPublicKey = errors.New("public key must be 65 bytes with tag 0x04")
	ErrInvalidASN1      = errors.New("malformed ASN.1 signature")
)

// Verifier is the subset of curve primitives needed to check an envelope.
type Verifier interface {
	LoadPublicKey(b []byte) (*sm2.PublicKey, error)
	Verify(pub *sm2.PublicKey, msg []byte, r, s *big.Int) bool
}

// Envelope is a decoded signature envelope.
type Envelope struct {
	R           [ScalarSize]byte
	S           [ScalarSize]byte
	PublicKeyXY [CoordinatesSize]byte
}

// New builds an envelope from a signature pair and the signer's uncompressed
// public key.
func New(r, s *big.Int, publicKey []byte) (*Envelope, error) {
	if len(publicKey) != PublicKeySize || publicKey[0] != uncompressedPointTag {
		return nil, ErrInvalidPublicKey
	}

	e := &Envelope{}
	if err := putScalar(e.R[:], r); err != nil {
		return nil, fmt.Errorf("r: %w", err)
	}
	if err := putScalar(e.S[:], s); err != nil {
		return nil, fmt.Errorf("s: %w", err)
	}
	copy(e.PublicKeyXY[:], publicKey[1:])
	return e, nil
}

// Parse decodes an encoded envelope. It performs no cryptographic checks.
func Parse(b []byte) (*Envelope, error) {
	if len(b) != Size {
		return nil, ErrInvalidLength
	}

	e := &Envelope{}
	copy(e.R[:], b[:ScalarSize])
	copy(e.S[:], b[ScalarSize:2*ScalarSize])
	copy(e.PublicKeyXY[:], b[2*ScalarSize:])
	return e, nil
}

// Bytes returns the 128-byte encoding.
func (e *Envelope) Bytes() []byte {
	out := make([]byte, 0, Size)
	out = append(out, e.R[:]...)
	out = append(out, e.S[:]...)
	out = append(out, e.PublicKeyXY[:]...)
	return out
}

// Scalars returns r and s as integers.
func (e *Envelope) Scalars() (r, s *big.Int) {
	return new(big.Int).SetBytes(e.R[:]), new(big.Int).SetBytes(e.S[:])
}

// PublicKey returns the embedded key in uncompressed form.
func (e *Envelope) PublicKey() []byte {
	out := make([]byte, 0, PublicKeySize)
	out = append(out, uncompressedPointTag)
	return append(out, e.PublicKeyXY[:]...)
}

// MatchesKey reports whether publicKey is a 65-byte key whose coordinates
// equal the embedded ones. The tag byte is not compared.
func (e *Envelope) MatchesKey(publicKey []byte) bool {
	return len(publicKey) == PublicKeySize && bytes.Equal(publicKey[1:], e.PublicKeyXY[:])
}

// Verify checks sig over digest against publicKey.
//
// Every malformed input yields false rather than an error: a wrong-length
// envelope or key, an embedded key that differs from publicKey, or a key that
// does not decode to a curve point. The embedded key is compared before any
// curve operation is attempted.
func Verify(v Verifier, publicKey, sig, digest []byte) bool {
	e, err := Parse(sig)
	if err != nil {
		return false
	}
	if !e.MatchesKey(publicKey) {
		return false
	}

	pub, err := v.LoadPublicKey(publicKey)
	if err != nil {
		return false
	}
	r, s := e.Scalars()
	return v.Verify(pub, digest, r, s)
}

// MarshalASN1 encodes (r, s) as a DER SEQUENCE of two INTEGERs, the form
// accepted by most SM2 toolkits.
func (e *Envelope) MarshalASN1() ([]byte, error) {
	r, s := e.Scalars()

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	return b.Bytes()
}

// FromASN1 builds an envelope from a DER-encoded (r, s) pair and the
// signer's uncompressed public key.
func FromASN1(der, publicKey []byte) (*Envelope, error) {
	var (
		inner cryptobyte.String
		r     = new(big.Int)
		s     = new(big.Int)
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, ErrInvalidASN1
	}
	if r.Sign() < 0 || s.Sign() < 0 {
		return nil, ErrInvalidASN1
	}
	return New(r, s, publicKey)
}

// putScalar right-aligns the minimal big-endian form of v into dst.
func putScalar(dst []byte, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return ErrInvalidScalar
	}
	b := v.Bytes()
	if len(b) > len(dst) {
		return ErrInvalidScalar
	}
	copy(dst[len(dst)-len(b):], b)
	return nil
}
