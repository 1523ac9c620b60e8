package config

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	keystorev4 "github.com/wealdtech/go-eth2-wallet-encryptor-keystorev4"

	"github.com/attestval/duties/crypto/bls"
	"github.com/attestval/duties/shared/fileutil"
	"github.com/attestval/duties/validatorkey"
)

// eip2335Keystore is the on-disk JSON shape of a single EIP-2335 keystore
// file, grounded on the teacher's validator/keymanager.Keystore struct
// (direct_keystore.go / types.go) — uuid and pubkey are informational,
// decryption only needs the crypto section.
type eip2335Keystore struct {
	Crypto map[string]interface{} `json:"crypto"`
	ID     string                 `json:"uuid"`
	Pubkey string                 `json:"pubkey"`
}

// LoadLocalSigners decrypts every *.json keystore file in dir with
// passphrase, grounded on the teacher's NewKeystore (direct_keystore.go):
// that function decrypted every key it found in one pass and built a
// Direct keymanager from the results. Remote-signer handles are not
// loaded from disk (see validatorkey.NewRemoteSigner) and are wired in
// by the caller separately.
func LoadLocalSigners(dir, passphrase string) ([]validatorkey.Signer, error) {
	expanded, err := fileutil.ExpandPath(dir)
	if err != nil {
		return nil, errors.Wrap(err, "could not expand keystore directory")
	}
	entries, err := ioutil.ReadDir(expanded)
	if err != nil {
		return nil, errors.Wrap(err, "could not read keystore directory")
	}

	encryptor := keystorev4.New()
	var signers []validatorkey.Signer
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := ioutil.ReadFile(filepath.Join(expanded, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "could not read keystore file %s", entry.Name())
		}
		var ks eip2335Keystore
		if err := json.Unmarshal(raw, &ks); err != nil {
			return nil, errors.Wrapf(err, "could not parse keystore file %s", entry.Name())
		}
		secretBytes, err := encryptor.Decrypt(ks.Crypto, passphrase)
		if err != nil {
			return nil, errors.Wrapf(err, "could not decrypt keystore %s", entry.Name())
		}
		secret, err := bls.SecretKeyFromBytes(secretBytes)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse decrypted secret key from %s", entry.Name())
		}
		signers = append(signers, validatorkey.NewLocalSigner(secret))
	}
	log.WithField("count", len(signers)).Info("loaded local keystores")
	return signers, nil
}

// ResolvePassphrase follows the teacher's direct_keystore.go password
// precedence: an explicit --password value wins, otherwise fall back to
// reading the password file.
func ResolvePassphrase(password, passwordFile string) (string, error) {
	if password != "" {
		return password, nil
	}
	if passwordFile == "" {
		return "", errors.New("no password or password file provided for keystore decryption")
	}
	raw, err := fileutil.ReadFileAsBytes(passwordFile)
	if err != nil {
		return "", errors.Wrap(err, "could not read password file")
	}
	return strings.TrimRight(string(raw), "\r\n"), nil
}
