package handoff

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/pkg/errors"
)

// ErrAttestation is returned when a response attestation is missing, malformed or does not
// verify against the expected signer.
var ErrAttestation = errors.New("attestation failed")

// Attestor signs blind responses with a secp256k1 key so that the message owner can tell
// which signer produced a response and that it was not altered on the way back.
//
// The attestation covers the transport envelope only; the RSA signature itself is checked
// by blindrsa.Verify.
type Attestor struct {
	key *secp256k1.PrivateKey
}

// NewAttestor generates a fresh attestation key.
func NewAttestor() (*Attestor, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate attestation key")
	}
	return &Attestor{key: key}, nil
}

// AttestorFromHex loads a 32-byte hex-encoded secp256k1 private key.
func AttestorFromHex(s string) (*Attestor, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrAttestation, "attestation secret is not hex")
	}
	if len(b) != 32 {
		return nil, errors.Wrapf(ErrAttestation, "attestation secret must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, errors.Wrap(ErrAttestation, "attestation secret is zero")
	}
	return &Attestor{key: key}, nil
}

// SignerID returns the compressed public key in hex. It identifies the signer in responses.
func (a *Attestor) SignerID() string {
	return hex.EncodeToString(a.key.PubKey().SerializeCompressed())
}

// SecretHex returns the private key in hex.
func (a *Attestor) SecretHex() string {
	return hex.EncodeToString(a.key.Serialize())
}

// Attest sets SignerID and Attestation on resp.
func (a *Attestor) Attest(resp *BlindResponse) {
	resp.SignerID = a.SignerID()
	digest := resp.digest()
	sig := ecdsa.Sign(a.key, digest[:])
	resp.Attestation = hex.EncodeToString(sig.Serialize())
}

// VerifyAttestation checks that resp was attested by signerID (a compressed public key in
// hex). It fails with ErrAttestation if the response is unattested, attested by another
// key, or modified after attestation.
func VerifyAttestation(resp *BlindResponse, signerID string) error {
	if resp.Attestation == "" {
		return errors.Wrap(ErrAttestation, "response is not attested")
	}
	if resp.SignerID != signerID {
		return errors.Wrapf(ErrAttestation, "response attested by unexpected signer %s", resp.SignerID)
	}

	pubBytes, err := hex.DecodeString(signerID)
	if err != nil {
		return errors.Wrap(ErrAttestation, "signer id is not hex")
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return errors.Wrapf(ErrAttestation, "invalid signer key: %v", err)
	}

	sigBytes, err := hex.DecodeString(resp.Attestation)
	if err != nil {
		return errors.Wrap(ErrAttestation, "attestation is not hex")
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return errors.Wrapf(ErrAttestation, "invalid attestation encoding: %v", err)
	}

	digest := resp.digest()
	if !sig.Verify(digest[:], pub) {
		return errors.Wrap(ErrAttestation, "attestation does not match response")
	}
	return nil
}
