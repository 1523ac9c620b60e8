// Package bls wraps github.com/supranational/blst with the narrow surface
// this engine needs: secret keys, public keys, and signatures.
// Shape and naming follow the teacher's shared/bls/blst secret-key wrapper.
package bls

import (
	"fmt"

	"github.com/pkg/errors"
	blst "github.com/supranational/blst/bindings/go"
)

var dst = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

const secretKeyLength = 32

// SecretKey is a BLS12-381 secret scalar.
type SecretKey struct {
	p *blst.SecretKey
}

// PublicKey is a BLS12-381 G1 public key.
type PublicKey struct {
	p *blst.P1Affine
}

// Signature is a BLS12-381 G2 signature.
type Signature struct {
	s *blst.P2Affine
}

// SecretKeyFromBytes parses a 32-byte big-endian secret key.
func SecretKeyFromBytes(raw []byte) (*SecretKey, error) {
	if len(raw) != secretKeyLength {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", secretKeyLength, len(raw))
	}
	sk := new(blst.SecretKey).Deserialize(raw)
	if sk == nil {
		return nil, errors.New("could not unmarshal bytes into secret key")
	}
	return &SecretKey{p: sk}, nil
}

// PublicKey derives the public key corresponding to s.
func (s *SecretKey) PublicKey() *PublicKey {
	return &PublicKey{p: new(blst.P1Affine).From(s.p)}
}

// Sign produces a BLS signature over msg.
func (s *SecretKey) Sign(msg []byte) *Signature {
	sig := new(blst.P2Affine).Sign(s.p, msg, dst)
	return &Signature{s: sig}
}

// Marshal serializes the secret key to 32 bytes.
func (s *SecretKey) Marshal() []byte {
	return s.p.Serialize()
}

// PublicKeyFromBytes parses a compressed 48-byte G1 public key.
func PublicKeyFromBytes(raw []byte) (*PublicKey, error) {
	p := new(blst.P1Affine).Uncompress(raw)
	if p == nil {
		return nil, errors.New("could not unmarshal bytes into public key")
	}
	return &PublicKey{p: p}, nil
}

// Marshal serializes the public key to its compressed 48-byte form.
func (p *PublicKey) Marshal() []byte {
	return p.p.Compress()
}

// SignatureFromBytes parses a compressed 96-byte G2 signature.
func SignatureFromBytes(raw []byte) (*Signature, error) {
	s := new(blst.P2Affine).Uncompress(raw)
	if s == nil {
		return nil, errors.New("could not unmarshal bytes into signature")
	}
	return &Signature{s: s}, nil
}

// Marshal serializes the signature to its compressed 96-byte form.
func (s *Signature) Marshal() []byte {
	return s.s.Compress()
}

// Verify checks the signature against pub and msg, used by remoteSigner.Sign
// to confirm a remote signing process's HTTP response actually matches the
// attached validator's own public key before it is ever broadcast.
func (s *Signature) Verify(pub *PublicKey, msg []byte) bool {
	return s.s.Verify(true, pub.p, true, msg, dst)
}
