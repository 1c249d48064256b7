package crypto

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/tjfoc/gmsm/sm2"
)

func TestSM2SignVerify(t *testing.T) {
	key, err := GenerateSM2Key()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	data := []byte("test message for signing")
	r, s, err := SignSM2(key, data)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if !VerifySM2(&key.PublicKey, data, r, s) {
		t.Fatal("valid signature rejected")
	}
}

func TestSM2VerifyWrongData(t *testing.T) {
	key, err := GenerateSM2Key()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	r, s, err := SignSM2(key, []byte("original"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if VerifySM2(&key.PublicKey, []byte("tampered"), r, s) {
		t.Fatal("tampered data should not verify")
	}
}

func TestSM2VerifyWrongKey(t *testing.T) {
	key1, _ := GenerateSM2Key()
	key2, _ := GenerateSM2Key()

	r, s, _ := SignSM2(key1, []byte("data"))
	if VerifySM2(&key2.PublicKey, []byte("data"), r, s) {
		t.Fatal("wrong key should not verify")
	}
}

func TestSM2VerifyNilInputs(t *testing.T) {
	key, _ := GenerateSM2Key()
	if VerifySM2(nil, []byte("data"), big.NewInt(1), big.NewInt(1)) {
		t.Fatal("nil key should not verify")
	}
	if VerifySM2(&key.PublicKey, []byte("data"), nil, big.NewInt(1)) {
		t.Fatal("nil r should not verify")
	}
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	key, err := GenerateSM2Key()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	raw := MarshalPrivateKey(key)
	if len(raw) != PrivateKeySize {
		t.Fatalf("private key length: got %d, want %d", len(raw), PrivateKeySize)
	}

	recovered, err := ParsePrivateKey(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// Derived public key must match the generated one
	if !bytes.Equal(MarshalPublicKey(&recovered.PublicKey), MarshalPublicKey(&key.PublicKey)) {
		t.Fatal("derived public key mismatch")
	}

	data := []byte("roundtrip test")
	r, s, err := SignSM2(recovered, data)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !VerifySM2(&key.PublicKey, data, r, s) {
		t.Fatal("roundtrip key should verify signature")
	}
}

func TestParsePrivateKeyRejectsOutOfRange(t *testing.T) {
	n := sm2.P256Sm2().Params().N

	cases := map[string][]byte{
		"zero":     make([]byte, PrivateKeySize),
		"order":    n.FillBytes(make([]byte, PrivateKeySize)),
		"max":      bytes.Repeat([]byte{0xff}, PrivateKeySize),
		"short":    {0x01, 0x02},
		"too long": make([]byte, PrivateKeySize+1),
	}
	for name, raw := range cases {
		if _, err := ParsePrivateKey(raw); !errors.Is(err, ErrInvalidKeyEncoding) {
			t.Fatalf("%s: expected ErrInvalidKeyEncoding, got %v", name, err)
		}
	}

	nMinusOne := new(big.Int).Sub(n, big.NewInt(1))
	if _, err := ParsePrivateKey(nMinusOne.FillBytes(make([]byte, PrivateKeySize))); err != nil {
		t.Fatalf("n-1 should be accepted: %v", err)
	}

	one := big.NewInt(1).FillBytes(make([]byte, PrivateKeySize))
	key, err := ParsePrivateKey(one)
	if err != nil {
		t.Fatalf("1 should be accepted: %v", err)
	}
	params := sm2.P256Sm2().Params()
	if key.X.Cmp(params.Gx) != 0 || key.Y.Cmp(params.Gy) != 0 {
		t.Fatal("scalar 1 should derive the base point")
	}
}

func TestPublicKeyRoundTrip(t *testing.T) {
	key, _ := GenerateSM2Key()

	raw := MarshalPublicKey(&key.PublicKey)
	if len(raw) != PublicKeySize || raw[0] != 0x04 {
		t.Fatalf("unexpected public key encoding: %x", raw)
	}

	pub, err := ParsePublicKey(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pub.X.Cmp(key.X) != 0 || pub.Y.Cmp(key.Y) != 0 {
		t.Fatal("public key mismatch")
	}
}

func TestParsePublicKeyRejectsInvalid(t *testing.T) {
	key, _ := GenerateSM2Key()
	raw := MarshalPublicKey(&key.PublicKey)

	wrongTag := append([]byte(nil), raw...)
	wrongTag[0] = 0x02

	offCurve := append([]byte(nil), raw...)
	offCurve[PublicKeySize-1] ^= 0x01

	cases := map[string][]byte{
		"empty":     nil,
		"short":     raw[:64],
		"wrong tag": wrongTag,
		"off curve": offCurve,
	}
	for name, b := range cases {
		if _, err := ParsePublicKey(b); !errors.Is(err, ErrInvalidKeyEncoding) {
			t.Fatalf("%s: expected ErrInvalidKeyEncoding, got %v", name, err)
		}
	}
}

func TestHashSM3(t *testing.T) {
	// GB/T 32905-2016 example 1
	want, _ := new(big.Int).SetString("66c7f0f462eeedd9d1f2d46bdc10e4e24167c4875cf2f7a2297da02b8f4ba8e0", 16)
	got := HashSM3([]byte("abc"))
	if len(got) != 32 {
		t.Fatalf("digest length: got %d, want 32", len(got))
	}
	if new(big.Int).SetBytes(got).Cmp(want) != 0 {
		t.Fatalf("digest mismatch: %x", got)
	}
}

// Benchmarks

func BenchmarkSM2Sign(b *testing.B) {
	key, _ := GenerateSM2Key()
	data := []byte("benchmark data for signing")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SignSM2(key, data)
	}
}

func BenchmarkSM2Verify(b *testing.B) {
	key, _ := GenerateSM2Key()
	data := []byte("benchmark data for signing")
	r, s, _ := SignSM2(key, data)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		VerifySM2(&key.PublicKey, data, r, s)
	}
}
