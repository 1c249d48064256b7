package hsm

import (
	"math/big"

	"github.com/tjfoc/gmsm/sm2"

	"github.com/glinharesb/sm2-server/internal/crypto"
)

// SoftwareHSM is a software-only SM2 provider backed by tjfoc/gmsm.
type SoftwareHSM struct{}

func NewSoftwareHSM() *SoftwareHSM {
	return &SoftwareHSM{}
}

func (s *SoftwareHSM) GenerateKey() (*sm2.PrivateKey, error) {
	return crypto.GenerateSM2Key()
}

func (s *SoftwareHSM) Sign(key *sm2.PrivateKey, msg []byte) (*big.Int, *big.Int, error) {
	return crypto.SignSM2(key, msg)
}

func (s *SoftwareHSM) Verify(pub *sm2.PublicKey, msg []byte, r, sig *big.Int) bool {
	return crypto.VerifySM2(pub, msg, r, sig)
}

func (s *SoftwareHSM) Hash(data []byte) []byte {
	return crypto.HashSM3(data)
}

func (s *SoftwareHSM) MarshalPublicKey(pub *sm2.PublicKey) []byte {
	return crypto.MarshalPublicKey(pub)
}

func (s *SoftwareHSM) MarshalPrivateKey(key *sm2.PrivateKey) []byte {
	return crypto.MarshalPrivateKey(key)
}

func (s *SoftwareHSM) LoadPublicKey(b []byte) (*sm2.PublicKey, error) {
	return crypto.ParsePublicKey(b)
}

func (s *SoftwareHSM) LoadPrivateKey(b []byte) (*sm2.PrivateKey, error) {
	return crypto.ParsePrivateKey(b)
}
