package validatorkey

import (
	"context"

	bytesutil "github.com/wealdtech/go-bytesutil"

	"github.com/attestval/duties/core"
	"github.com/attestval/duties/crypto/bls"
)

// localSigner signs in-process using a decrypted BLS secret key held in
// memory, grounded on the teacher's validator/keymanager.Direct keymanager
// (direct_keystore.go): keys are decrypted once at startup from an
// EIP-2335 keystore and kept resident for the process lifetime.
type localSigner struct {
	pubkey core.ValidatorKey
	secret *bls.SecretKey
}

// NewLocalSigner wraps an already-decrypted secret key. Decryption itself
// (EIP-2335 keystore + passphrase) is a config-time concern handled by
// the keystore loader, not this package —
// the teacher's direct_keystore.go only decrypts once during
// NewKeymanager.
func NewLocalSigner(secret *bls.SecretKey) Signer {
	pubkey := core.ValidatorKey(bytesutil.ToBytes48(secret.PublicKey().Marshal()))
	return &localSigner{pubkey: pubkey, secret: secret}
}

func (s *localSigner) PublicKey() core.ValidatorKey { return s.pubkey }

func (s *localSigner) Sign(ctx context.Context, req SignRequest) ([96]byte, error) {
	sig := s.secret.Sign(req.SigningRoot[:])
	var out [96]byte
	copy(out[:], sig.Marshal())
	return out, nil
}

func (s *localSigner) Close() error { return nil }
