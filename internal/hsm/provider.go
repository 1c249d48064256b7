package hsm

import (
	"math/big"

	"github.com/tjfoc/gmsm/sm2"
)

//go:generate mockgen -destination=mock/provider.go -package=mock . Provider

// Provider abstracts the SM2 primitives the signing core is built on.
// Real implementations would delegate to PKCS#11 or a cryptographic card.
type Provider interface {
	GenerateKey() (*sm2.PrivateKey, error)
	Sign(key *sm2.PrivateKey, msg []byte) (r, s *big.Int, err error)
	Verify(pub *sm2.PublicKey, msg []byte, r, s *big.Int) bool
	Hash(data []byte) []byte

	MarshalPublicKey(pub *sm2.PublicKey) []byte
	MarshalPrivateKey(key *sm2.PrivateKey) []byte
	LoadPublicKey(b []byte) (*sm2.PublicKey, error)
	LoadPrivateKey(b []byte) (*sm2.PrivateKey, error)
}
