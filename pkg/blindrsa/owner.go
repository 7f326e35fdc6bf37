package blindrsa

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

// BlindingContext is the owner-private result of blinding one message.
//
// It is created by MessageOwner.Blind, kept by the owner until the blind signature
// comes back, and consumed by MessageOwner.Unblind. The value is immutable; accessors
// return copies. Only BlindedValue may be sent to the signer.
type BlindingContext struct {
	digest  *big.Int // m
	factor  *big.Int // r, coprime to N
	blinded *big.Int // m · r^e mod N
	modulus *big.Int // N the context was computed under
}

// Digest returns the message digest m.
func (bc *BlindingContext) Digest() *big.Int { return new(big.Int).Set(bc.digest) }

// BlindingFactor returns the secret blinding factor r.
func (bc *BlindingContext) BlindingFactor() *big.Int { return new(big.Int).Set(bc.factor) }

// BlindedValue returns m · r^e mod N, the only value meant for the signer.
func (bc *BlindingContext) BlindedValue() *big.Int { return new(big.Int).Set(bc.blinded) }

// RestoreBlindingContext rebuilds a context from persisted owner state. Every invariant
// is checked again, including blinded == digest · r^e mod N.
func RestoreBlindingContext(pub PublicKey, digest, r, blinded *big.Int) (*BlindingContext, error) {
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	if !inRange(digest, bigZero, pub.N) {
		return nil, errors.Wrap(ErrInvalidInput, "digest outside [0, N)")
	}
	if !inRange(r, bigOne, pub.N) {
		return nil, errors.Wrap(ErrInvalidInput, "blinding factor outside [1, N)")
	}
	if GCD(r, pub.N).Cmp(bigOne) != 0 {
		return nil, errors.Wrap(ErrBlindingFactor, "blinding factor is not coprime to N")
	}

	expected := blind(digest, r, pub)
	if blinded == nil || expected.Cmp(blinded) != 0 {
		return nil, errors.Wrap(ErrInvalidInput, "blinded value does not match digest and blinding factor")
	}

	return &BlindingContext{
		digest:  new(big.Int).Set(digest),
		factor:  new(big.Int).Set(r),
		blinded: expected,
		modulus: new(big.Int).Set(pub.N),
	}, nil
}

// MessageOwner is the party that wants a message signed without revealing it.
// It holds only the signer's public key and blinding settings; per-message state
// lives in BlindingContext values.
type MessageOwner struct {
	pub PublicKey
	cfg BlindingConfig
}

// NewMessageOwner creates an owner for the given signer public key.
func NewMessageOwner(pub PublicKey) (*MessageOwner, error) {
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	return &MessageOwner{
		pub: PublicKey{E: new(big.Int).Set(pub.E), N: new(big.Int).Set(pub.N)},
		cfg: DefaultBlindingConfig(),
	}, nil
}

// WithBlindingConfig sets the blinding factor sampling configuration.
func (o *MessageOwner) WithBlindingConfig(cfg BlindingConfig) *MessageOwner {
	o.cfg = cfg
	return o
}

// PublicKey returns the signer public key the owner blinds for.
func (o *MessageOwner) PublicKey() PublicKey {
	return o.pub
}

// Blind blinds message with a freshly sampled factor r.
//
// r is drawn uniformly from [2, N-1] until gcd(r, N) = 1. At most
// BlindingConfig.MaxAttempts candidates are tried before ErrBlindingFactor.
func (o *MessageOwner) Blind(message []byte) (*BlindingContext, error) {
	m, err := Digest(o.pub, message)
	if err != nil {
		return nil, err
	}

	r, err := o.sampleFactor()
	if err != nil {
		return nil, err
	}

	return o.newContext(m, r), nil
}

// BlindWithFactor blinds message with a caller-chosen factor r in [1, N).
func (o *MessageOwner) BlindWithFactor(message []byte, r *big.Int) (*BlindingContext, error) {
	m, err := Digest(o.pub, message)
	if err != nil {
		return nil, err
	}

	if !inRange(r, bigOne, o.pub.N) {
		return nil, errors.Wrap(ErrInvalidInput, "blinding factor outside [1, N)")
	}
	if GCD(r, o.pub.N).Cmp(bigOne) != 0 {
		return nil, errors.Wrap(ErrBlindingFactor, "blinding factor is not coprime to N")
	}

	return o.newContext(m, new(big.Int).Set(r)), nil
}

// Unblind removes the blinding factor of bc from a blind signature, returning m^d mod N.
func (o *MessageOwner) Unblind(blindSignature *big.Int, bc *BlindingContext) (*big.Int, error) {
	if bc == nil || bc.modulus == nil || bc.factor == nil {
		return nil, errors.Wrap(ErrInvalidInput, "blinding context was not created by Blind")
	}
	if bc.modulus.Cmp(o.pub.N) != 0 {
		return nil, errors.Wrap(ErrInvalidInput, "blinding context belongs to a different key")
	}
	return Unblind(blindSignature, bc.factor, o.pub.N)
}

// Verify reports whether signature is a valid signature of message under the owner's key.
func (o *MessageOwner) Verify(message []byte, signature *big.Int) (bool, error) {
	return Verify(o.pub, message, signature)
}

func (o *MessageOwner) sampleFactor() (*big.Int, error) {
	if o.cfg.MaxAttempts <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "max attempts must be positive, got %d", o.cfg.MaxAttempts)
	}

	// [2, N-1] = 2 + [0, N-2)
	span := new(big.Int).Sub(o.pub.N, bigTwo)
	for attempt := 0; attempt < o.cfg.MaxAttempts; attempt++ {
		r, err := rand.Int(o.cfg.reader(), span)
		if err != nil {
			return nil, errors.Wrap(err, "failed to sample blinding factor")
		}
		r.Add(r, bigTwo)

		if GCD(r, o.pub.N).Cmp(bigOne) == 0 {
			return r, nil
		}
	}

	return nil, errors.Wrapf(ErrBlindingFactor, "no factor coprime to N after %d attempts", o.cfg.MaxAttempts)
}

func (o *MessageOwner) newContext(m, r *big.Int) *BlindingContext {
	return &BlindingContext{
		digest:  m,
		factor:  r,
		blinded: blind(m, r, o.pub),
		modulus: new(big.Int).Set(o.pub.N),
	}
}

// Unblind computes blindSignature · r⁻¹ mod n.
//
// For blindSignature = (m · r^e)^d this is m^d · r^(ed) · r⁻¹ = m^d (mod n),
// because r^(ed) ≡ r when e·d ≡ 1 (mod φ(n)).
func Unblind(blindSignature, r, n *big.Int) (*big.Int, error) {
	if n == nil || n.Sign() <= 0 {
		return nil, errors.Wrap(ErrInvalidInput, "modulus must be positive")
	}
	if !inRange(blindSignature, bigZero, n) {
		return nil, errors.Wrap(ErrInvalidInput, "blind signature outside [0, N)")
	}
	if r == nil {
		return nil, errors.Wrap(ErrInvalidInput, "nil blinding factor")
	}

	rInv, err := ModInverse(r, n)
	if err != nil {
		return nil, errors.Wrap(err, "failed to invert blinding factor")
	}

	s := new(big.Int).Mul(blindSignature, rInv)
	return s.Mod(s, n), nil
}

// Verify reports whether signature^e mod N equals the digest of message mod N.
// A mismatch is reported as false with a nil error; only a malformed key or a
// signature outside [0, N) is an error.
func Verify(pub PublicKey, message []byte, signature *big.Int) (bool, error) {
	if err := pub.Validate(); err != nil {
		return false, err
	}
	if !inRange(signature, bigZero, pub.N) {
		return false, errors.Wrap(ErrInvalidInput, "signature outside [0, N)")
	}

	m := HashMessage(message)
	m.Mod(m, pub.N)

	return new(big.Int).Exp(signature, pub.E, pub.N).Cmp(m) == 0, nil
}

// blind computes m · r^e mod N.
func blind(m, r *big.Int, pub PublicKey) *big.Int {
	re := new(big.Int).Exp(r, pub.E, pub.N)
	blinded := re.Mul(re, m)
	return blinded.Mod(blinded, pub.N)
}

// inRange reports whether lo <= x < hi. A nil x is never in range.
func inRange(x, lo, hi *big.Int) bool {
	return x != nil && x.Cmp(lo) >= 0 && x.Cmp(hi) < 0
}
