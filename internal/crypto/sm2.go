package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/tjfoc/gmsm/sm2"
	"github.com/tjfoc/gmsm/sm3"
)

const (
	// PrivateKeySize is the length of a serialized SM2 scalar.
	PrivateKeySize = 32

	// PublicKeySize is the length of an uncompressed SM2 point (0x04‖X‖Y).
	PublicKeySize = 1 + 2*coordinateSize

	coordinateSize       = 32
	uncompressedPointTag = 0x04
)

var ErrInvalidKeyEncoding = errors.New("invalid key encoding")

var curveOrder = saferith.ModulusFromBytes(sm2.P256Sm2().Params().N.Bytes())

// GenerateSM2Key creates a new SM2 key pair.
func GenerateSM2Key() (*sm2.PrivateKey, error) {
	key, err := sm2.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate sm2 key: %w", err)
	}
	return key, nil
}

// SignSM2 signs msg with the given private key. The message is hashed with
// SM3 together with the signer's Z value using the default user id.
func SignSM2(key *sm2.PrivateKey, msg []byte) (r, s *big.Int, err error) {
	r, s, err = sm2.Sm2Sign(key, msg, nil, rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("sm2 sign: %w", err)
	}
	return r, s, nil
}

// VerifySM2 verifies the (r, s) signature pair over msg.
func VerifySM2(pub *sm2.PublicKey, msg []byte, r, s *big.Int) bool {
	if pub == nil || r == nil || s == nil {
		return false
	}
	return sm2.Sm2Verify(pub, msg, nil, r, s)
}

// HashSM3 returns the 32-byte SM3 digest of data.
func HashSM3(data []byte) []byte {
	return sm3.Sm3Sum(data)
}

// MarshalPublicKey encodes a public key as an uncompressed point.
func MarshalPublicKey(pub *sm2.PublicKey) []byte {
	out := make([]byte, PublicKeySize)
	out[0] = uncompressedPointTag
	pub.X.FillBytes(out[1 : 1+coordinateSize])
	pub.Y.FillBytes(out[1+coordinateSize:])
	return out
}

// ParsePublicKey decodes an uncompressed point and checks that it lies on the curve.
func ParsePublicKey(b []byte) (*sm2.PublicKey, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidKeyEncoding, PublicKeySize, len(b))
	}
	if b[0] != uncompressedPointTag {
		return nil, fmt.Errorf("%w: unsupported point tag 0x%02x", ErrInvalidKeyEncoding, b[0])
	}

	curve := sm2.P256Sm2()
	p := curve.Params().P
	x := new(big.Int).SetBytes(b[1 : 1+coordinateSize])
	y := new(big.Int).SetBytes(b[1+coordinateSize:])
	if x.Cmp(p) >= 0 || y.Cmp(p) >= 0 || !curve.IsOnCurve(x, y) {
		return nil, fmt.Errorf("%w: point is not on the curve", ErrInvalidKeyEncoding)
	}
	return &sm2.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// MarshalPrivateKey encodes the private scalar as 32 big-endian bytes.
func MarshalPrivateKey(key *sm2.PrivateKey) []byte {
	return key.D.FillBytes(make([]byte, PrivateKeySize))
}

// ParsePrivateKey decodes a 32-byte scalar and derives its public key.
// The scalar must lie in [1, n-1].
func ParsePrivateKey(b []byte) (*sm2.PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKeyEncoding, PrivateKeySize, len(b))
	}

	var d saferith.Nat
	d.SetBytes(b)
	gt, eq, _ := d.CmpMod(curveOrder)
	if gt|eq|d.EqZero() == 1 {
		return nil, fmt.Errorf("%w: private key out of range", ErrInvalidKeyEncoding)
	}

	curve := sm2.P256Sm2()
	key := &sm2.PrivateKey{D: new(big.Int).SetBytes(b)}
	key.PublicKey.Curve = curve
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(b)
	return key, nil
}
