// Package handoff defines the JSON documents exchanged between the message owner and the
// signer: key files, blind requests and blind responses.
//
// Only values that are safe to disclose cross the boundary. A BlindRequest carries the
// blinded value and never the message, its digest or the blinding factor.
package handoff

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
)

// Version is the envelope format version.
const Version = 1

// PublicKeyJSON is the JSON form of an RSA public key.
type PublicKeyJSON struct {
	E HexInt `json:"e"`
	N HexInt `json:"n"`
}

// NewPublicKeyJSON converts a public key.
func NewPublicKeyJSON(pub blindrsa.PublicKey) PublicKeyJSON {
	return PublicKeyJSON{E: NewHexInt(pub.E), N: NewHexInt(pub.N)}
}

// Key converts back and validates the key.
func (p PublicKeyJSON) Key() (blindrsa.PublicKey, error) {
	pub := blindrsa.PublicKey{E: p.E.Int(), N: p.N.Int()}
	if err := pub.Validate(); err != nil {
		return blindrsa.PublicKey{}, err
	}
	return pub, nil
}

// BlindRequest is sent by the message owner to the signer.
type BlindRequest struct {
	Version        int           `json:"version"`
	ID             uuid.UUID     `json:"id"`
	KeyFingerprint string        `json:"key_fingerprint"`
	PublicKey      PublicKeyJSON `json:"public_key"`
	BlindedMessage HexInt        `json:"blinded_message"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewBlindRequest builds a request for a blinded value under pub.
func NewBlindRequest(pub blindrsa.PublicKey, blinded *big.Int) *BlindRequest {
	return &BlindRequest{
		Version:        Version,
		ID:             uuid.New(),
		KeyFingerprint: pub.Fingerprint(),
		PublicKey:      NewPublicKeyJSON(pub),
		BlindedMessage: NewHexInt(blinded),
		CreatedAt:      time.Now().UTC(),
	}
}

// Validate checks that the request is well formed and internally consistent.
func (r *BlindRequest) Validate() error {
	if r.Version != Version {
		return errors.Wrapf(blindrsa.ErrInvalidInput, "unsupported request version %d", r.Version)
	}
	if r.ID == uuid.Nil {
		return errors.Wrap(blindrsa.ErrInvalidInput, "request id is missing")
	}
	pub, err := r.PublicKey.Key()
	if err != nil {
		return errors.Wrap(err, "invalid request public key")
	}
	if pub.Fingerprint() != r.KeyFingerprint {
		return errors.Wrap(blindrsa.ErrInvalidInput, "request fingerprint does not match its public key")
	}
	blinded := r.BlindedMessage.Int()
	if blinded == nil || blinded.Sign() < 0 || blinded.Cmp(pub.N) >= 0 {
		return errors.Wrap(blindrsa.ErrInvalidInput, "blinded message out of range")
	}
	return nil
}

// BlindResponse is returned by the signer to the message owner.
type BlindResponse struct {
	Version        int       `json:"version"`
	RequestID      uuid.UUID `json:"request_id"`
	KeyFingerprint string    `json:"key_fingerprint"`
	BlindSignature HexInt    `json:"blind_signature"`
	SignerID       string    `json:"signer_id,omitempty"`
	Attestation    string    `json:"attestation,omitempty"`
	SignedAt       time.Time `json:"signed_at"`
}

// NewBlindResponse builds an unattested response to req.
func NewBlindResponse(req *BlindRequest, blindSignature *big.Int) *BlindResponse {
	return &BlindResponse{
		Version:        Version,
		RequestID:      req.ID,
		KeyFingerprint: req.KeyFingerprint,
		BlindSignature: NewHexInt(blindSignature),
		SignedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

// Validate checks that the response is well formed.
func (r *BlindResponse) Validate() error {
	if r.Version != Version {
		return errors.Wrapf(blindrsa.ErrInvalidInput, "unsupported response version %d", r.Version)
	}
	if r.RequestID == uuid.Nil {
		return errors.Wrap(blindrsa.ErrInvalidInput, "request id is missing")
	}
	if r.BlindSignature.IsZero() {
		return errors.Wrap(blindrsa.ErrInvalidInput, "blind signature is missing")
	}
	return nil
}

// digest is the value covered by the attestation. It binds every field except the
// attestation itself.
func (r *BlindResponse) digest() [32]byte {
	canonical := fmt.Sprintf("blindsig/v%d|%s|%s|%s|%s|%d",
		r.Version,
		r.RequestID,
		r.KeyFingerprint,
		r.BlindSignature.String(),
		r.SignerID,
		r.SignedAt.Unix(),
	)
	return sha256.Sum256([]byte(canonical))
}
