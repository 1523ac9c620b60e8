package validatorkey

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	bytesutil "github.com/wealdtech/go-bytesutil"

	"github.com/attestval/duties/core"
	"github.com/attestval/duties/crypto/bls"
)

var domainNames = map[SignRequestDomain]string{
	DomainBlock:                       "BLOCK",
	DomainAttestation:                 "ATTESTATION",
	DomainRandao:                      "RANDAO",
	DomainSelectionProof:              "SELECTION_PROOF",
	DomainAggregateAndProof:           "AGGREGATE_AND_PROOF",
	DomainSyncCommitteeMessage:        "SYNC_COMMITTEE_MESSAGE",
	DomainSyncCommitteeSelectionProof: "SYNC_COMMITTEE_SELECTION_PROOF",
	DomainContributionAndProof:        "SYNC_COMMITTEE_CONTRIBUTION_AND_PROOF",
}

type remoteSignRequest struct {
	Type        string `json:"type"`
	SigningRoot string `json:"signingRoot"`
}

type remoteSignResponse struct {
	Signature string `json:"signature"`
}

// remoteSigner dispatches signing over HTTP to an external signer
// process (spec §3's Remote KeystoreDescriptor kind, §4.7's add_remote).
// One *http.Client is created per attached validator and reused for its
// lifetime (spec §5 "Resource policy"), never pooled further.
type remoteSigner struct {
	pubkey core.ValidatorKey
	url    string
	client *http.Client
}

// RemoteSignerConfig carries the configuration-time fields needed to
// construct a remote signing backend (spec §3 "KeystoreDescriptor":
// signer URL, TLS policy).
type RemoteSignerConfig struct {
	URL                    string
	IgnoreSSLVerification  bool
	Timeout                time.Duration
}

// NewRemoteSigner constructs a remote signer for pubkey, deriving its TLS
// policy from cfg.IgnoreSSLVerification — grounded on spec §4.7's
// "construct REST client with TLS flags derived from keystore flags".
func NewRemoteSigner(pubkey core.ValidatorKey, cfg RemoteSignerConfig) Signer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.IgnoreSSLVerification},
	}
	return &remoteSigner{
		pubkey: pubkey,
		url:    cfg.URL,
		client: &http.Client{Transport: transport, Timeout: timeout},
	}
}

func (s *remoteSigner) PublicKey() core.ValidatorKey { return s.pubkey }

func (s *remoteSigner) Sign(ctx context.Context, req SignRequest) ([96]byte, error) {
	body, err := json.Marshal(remoteSignRequest{
		Type:        domainNames[req.Domain],
		SigningRoot: "0x" + hex.EncodeToString(req.SigningRoot[:]),
	})
	if err != nil {
		return [96]byte{}, errors.Wrap(err, "remote signer: could not marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/sign/0x"+hex.EncodeToString(s.pubkey[:]), bytes.NewReader(body))
	if err != nil {
		return [96]byte{}, errors.Wrap(err, "remote signer: could not build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return [96]byte{}, errors.Wrap(err, "remote signer: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return [96]byte{}, errors.Errorf("remote signer: unexpected status %d", resp.StatusCode)
	}

	var parsed remoteSignResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return [96]byte{}, errors.Wrap(err, "remote signer: could not decode response")
	}

	sigBytes, err := hexDecodeSignature(parsed.Signature)
	if err != nil {
		return [96]byte{}, errors.Wrap(err, "remote signer: could not decode signature")
	}
	sig := bytesutil.ToBytes96(sigBytes)

	// The remote process is untrusted input over HTTP: verify its
	// signature against our own pubkey before treating it as usable,
	// rather than letting a buggy or compromised signer's output reach a
	// broadcast path.
	pub, err := bls.PublicKeyFromBytes(s.pubkey[:])
	if err != nil {
		return [96]byte{}, errors.Wrap(err, "remote signer: could not parse own public key")
	}
	blsSig, err := bls.SignatureFromBytes(sig[:])
	if err != nil {
		return [96]byte{}, errors.Wrap(err, "remote signer: returned an unparsable signature")
	}
	if !blsSig.Verify(pub, req.SigningRoot[:]) {
		return [96]byte{}, errors.New("remote signer: returned a signature that does not verify against its own public key")
	}
	return sig, nil
}

func (s *remoteSigner) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func hexDecodeSignature(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
