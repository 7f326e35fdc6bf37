package handoff

import (
	"github.com/pkg/errors"

	"github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
)

// KeyFile is the on-disk form of a signer key.
//
// The public variant is handed to message owners. The private variant additionally carries
// the RSA private exponent and the secp256k1 attestation secret and must stay with the signer.
type KeyFile struct {
	PublicKeyJSON
	D                 *HexInt `json:"d,omitempty"`
	Fingerprint       string  `json:"fingerprint"`
	AttestationKey    string  `json:"attestation_key,omitempty"`
	AttestationSecret string  `json:"attestation_secret,omitempty"`
}

// NewPublicKeyFile builds the file handed to message owners. attestor may be nil.
func NewPublicKeyFile(pub blindrsa.PublicKey, attestor *Attestor) *KeyFile {
	kf := &KeyFile{
		PublicKeyJSON: NewPublicKeyJSON(pub),
		Fingerprint:   pub.Fingerprint(),
	}
	if attestor != nil {
		kf.AttestationKey = attestor.SignerID()
	}
	return kf
}

// NewPrivateKeyFile builds the signer's own key file. attestor may be nil.
func NewPrivateKeyFile(keys *blindrsa.KeyPair, attestor *Attestor) *KeyFile {
	kf := NewPublicKeyFile(keys.Public, attestor)
	d := NewHexInt(keys.Private.D)
	kf.D = &d
	if attestor != nil {
		kf.AttestationSecret = attestor.SecretHex()
	}
	return kf
}

// IsPrivate reports whether the file carries private material.
func (kf *KeyFile) IsPrivate() bool {
	return (kf.D != nil && !kf.D.IsZero()) || kf.AttestationSecret != ""
}

// Public strips private material.
func (kf *KeyFile) Public() *KeyFile {
	return &KeyFile{
		PublicKeyJSON:  kf.PublicKeyJSON,
		Fingerprint:    kf.Fingerprint,
		AttestationKey: kf.AttestationKey,
	}
}

// PublicKey returns the validated public key, checking the recorded fingerprint.
func (kf *KeyFile) PublicKey() (blindrsa.PublicKey, error) {
	pub, err := kf.Key()
	if err != nil {
		return blindrsa.PublicKey{}, err
	}
	if kf.Fingerprint != "" && kf.Fingerprint != pub.Fingerprint() {
		return blindrsa.PublicKey{}, errors.Wrap(blindrsa.ErrInvalidInput, "key file fingerprint does not match key")
	}
	return pub, nil
}

// KeyPair returns the full key pair. It fails for a public key file.
func (kf *KeyFile) KeyPair() (*blindrsa.KeyPair, error) {
	pub, err := kf.PublicKey()
	if err != nil {
		return nil, err
	}
	if kf.D == nil || kf.D.IsZero() {
		return nil, errors.Wrap(blindrsa.ErrInvalidInput, "key file has no private exponent")
	}
	priv := blindrsa.PrivateKey{D: kf.D.Int(), N: pub.N}
	if err := priv.Validate(); err != nil {
		return nil, err
	}
	return &blindrsa.KeyPair{Public: pub, Private: priv}, nil
}

// Attestor returns the attestation signer stored in a private key file, or nil when the
// file has none.
func (kf *KeyFile) Attestor() (*Attestor, error) {
	if kf.AttestationSecret == "" {
		return nil, nil
	}
	a, err := AttestorFromHex(kf.AttestationSecret)
	if err != nil {
		return nil, err
	}
	if kf.AttestationKey != "" && kf.AttestationKey != a.SignerID() {
		return nil, errors.Wrap(ErrAttestation, "attestation secret does not match attestation key")
	}
	return a, nil
}
