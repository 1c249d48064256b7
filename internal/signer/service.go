// Package signer implements the sign and verify entry points on top of the
// signature envelope. Inputs and outputs are 0x-prefixed hex strings.
package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/glinharesb/sm2-server/internal/audit"
	"github.com/glinharesb/sm2-server/internal/codec"
	"github.com/glinharesb/sm2-server/internal/crypto"
	"github.com/glinharesb/sm2-server/internal/envelope"
	"github.com/glinharesb/sm2-server/internal/hsm"
)

// Operation names recorded in the audit log.
const (
	OpKeypair      = "Keypair"
	OpSignRaw      = "SignRaw"
	OpSignDigest   = "SignDigest"
	OpVerifyRaw    = "VerifyRaw"
	OpVerifyDigest = "VerifyDigest"
)

const (
	modeRaw    = "raw"
	modeDigest = "digest"
)

// Keypair is a freshly generated key pair in hex form.
type Keypair struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// Service signs and verifies on behalf of the transports. It holds no key
// material between calls.
type Service struct {
	hsm   hsm.Provider
	audit *audit.Logger
}

// NewService creates a Service. The audit logger may be nil.
func NewService(h hsm.Provider, a *audit.Logger) *Service {
	return &Service{
		hsm:   h,
		audit: a,
	}
}

// IsRequestError reports whether err was caused by malformed caller input
// rather than a failure inside the service.
func IsRequestError(err error) bool {
	return errors.Is(err, codec.ErrMalformedHex) || errors.Is(err, crypto.ErrInvalidKeyEncoding)
}

// Keypair generates a new SM2 key pair.
func (s *Service) Keypair(ctx context.Context) (*Keypair, error) {
	key, err := s.hsm.GenerateKey()
	if err != nil {
		s.log(ctx, OpKeypair, "", audit.StatusError, failure("", err))
		return nil, err
	}

	kp := &Keypair{
		PrivateKey: codec.EncodeHex(s.hsm.MarshalPrivateKey(key)),
		PublicKey:  codec.EncodeHex(s.hsm.MarshalPublicKey(&key.PublicKey)),
	}
	s.log(ctx, OpKeypair, kp.PublicKey, audit.StatusOK, nil)
	return kp, nil
}

// SignDigest signs a caller-supplied digest and returns the hex envelope.
func (s *Service) SignDigest(ctx context.Context, privateKeyHex, digestHex string) (string, error) {
	return s.sign(ctx, OpSignDigest, modeDigest, privateKeyHex, digestHex)
}

// SignRaw hashes raw with SM3 and signs the result.
func (s *Service) SignRaw(ctx context.Context, privateKeyHex, rawHex string) (string, error) {
	digestHex, err := codec.DigestOf(s.hsm, rawHex)
	if err != nil {
		err = fmt.Errorf("raw: %w", err)
		s.log(ctx, OpSignRaw, "", audit.StatusError, failure(modeRaw, err))
		return "", err
	}
	return s.sign(ctx, OpSignRaw, modeRaw, privateKeyHex, digestHex)
}

// VerifyDigest checks a hex envelope against a caller-supplied digest.
//
// Malformed hex in any input is an error. A well-formed but invalid
// signature, including one with the wrong length or a different embedded
// key, is reported as false with a nil error.
func (s *Service) VerifyDigest(ctx context.Context, publicKeyHex, signatureHex, digestHex string) (bool, error) {
	return s.verify(ctx, OpVerifyDigest, modeDigest, publicKeyHex, signatureHex, digestHex)
}

// VerifyRaw hashes raw with SM3 and verifies the envelope over the result.
func (s *Service) VerifyRaw(ctx context.Context, publicKeyHex, signatureHex, rawHex string) (bool, error) {
	digestHex, err := codec.DigestOf(s.hsm, rawHex)
	if err != nil {
		err = fmt.Errorf("raw: %w", err)
		s.log(ctx, OpVerifyRaw, "", audit.StatusError, failure(modeRaw, err))
		return false, err
	}
	return s.verify(ctx, OpVerifyRaw, modeRaw, publicKeyHex, signatureHex, digestHex)
}

func (s *Service) sign(ctx context.Context, op, mode, privateKeyHex, digestHex string) (string, error) {
	sigHex, subject, err := s.signEnvelope(privateKeyHex, digestHex)
	if err != nil {
		s.log(ctx, op, subject, audit.StatusError, failure(mode, err))
		return "", err
	}
	s.log(ctx, op, subject, audit.StatusOK, map[string]string{"mode": mode})
	return sigHex, nil
}

func (s *Service) signEnvelope(privateKeyHex, digestHex string) (sigHex, subject string, err error) {
	privateKey, err := codec.DecodeHex(privateKeyHex)
	if err != nil {
		return "", "", fmt.Errorf("private key: %w", err)
	}
	digest, err := codec.DecodeHex(digestHex)
	if err != nil {
		return "", "", fmt.Errorf("digest: %w", err)
	}

	key, err := s.hsm.LoadPrivateKey(privateKey)
	if err != nil {
		return "", "", fmt.Errorf("private key: %w", err)
	}
	publicKey := s.hsm.MarshalPublicKey(&key.PublicKey)
	subject = codec.EncodeHex(publicKey)

	r, sv, err := s.hsm.Sign(key, digest)
	if err != nil {
		return "", subject, err
	}
	e, err := envelope.New(r, sv, publicKey)
	if err != nil {
		return "", subject, fmt.Errorf("build envelope: %w", err)
	}
	return codec.EncodeHex(e.Bytes()), subject, nil
}

func (s *Service) verify(ctx context.Context, op, mode, publicKeyHex, signatureHex, digestHex string) (bool, error) {
	publicKey, err := codec.DecodeHex(publicKeyHex)
	if err != nil {
		err = fmt.Errorf("public key: %w", err)
		s.log(ctx, op, "", audit.StatusError, failure(mode, err))
		return false, err
	}
	subject := codec.EncodeHex(publicKey)

	sig, err := codec.DecodeHex(signatureHex)
	if err != nil {
		err = fmt.Errorf("signature: %w", err)
		s.log(ctx, op, subject, audit.StatusError, failure(mode, err))
		return false, err
	}
	digest, err := codec.DecodeHex(digestHex)
	if err != nil {
		err = fmt.Errorf("digest: %w", err)
		s.log(ctx, op, subject, audit.StatusError, failure(mode, err))
		return false, err
	}

	ok := envelope.Verify(s.hsm, publicKey, sig, digest)
	if ok {
		s.log(ctx, op, subject, audit.StatusOK, map[string]string{"mode": mode})
	} else {
		s.log(ctx, op, subject, audit.StatusRejected, map[string]string{"mode": mode, "reason": rejectReason(publicKey, sig)})
	}
	return ok, nil
}

// Audit reasons. Error text is never recorded, it may quote private key bytes.
const (
	reasonMalformedHex = "malformed_hex"
	reasonInvalidKey   = "invalid_key_encoding"
	reasonInternal     = "internal"
	reasonLength       = "invalid_length"
	reasonKeyMismatch  = "key_mismatch"
	reasonSignature    = "invalid_signature"
)

func failure(mode string, err error) map[string]string {
	md := map[string]string{}
	if mode != "" {
		md["mode"] = mode
	}
	switch {
	case errors.Is(err, codec.ErrMalformedHex):
		md["reason"] = reasonMalformedHex
	case errors.Is(err, crypto.ErrInvalidKeyEncoding):
		md["reason"] = reasonInvalidKey
	default:
		md["reason"] = reasonInternal
	}
	return md
}

// rejectReason classifies a failed verification the same way envelope.Verify
// checks it.
func rejectReason(publicKey, sig []byte) string {
	e, err := envelope.Parse(sig)
	if err != nil || len(publicKey) != envelope.PublicKeySize {
		return reasonLength
	}
	if !e.MatchesKey(publicKey) {
		return reasonKeyMismatch
	}
	return reasonSignature
}

func (s *Service) log(ctx context.Context, op, subject, status string, metadata map[string]string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.SourceFromContext(ctx), op, subject, status, metadata)
}
