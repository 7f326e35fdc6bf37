package blindrsa

import (
	"math/big"

	"github.com/pkg/errors"
)

// BlindSigner signs blinded values. Implement this interface to plug a remote or
// hardware-backed signer into Client or SignBatch.
type BlindSigner interface {
	// SignBlinded returns blinded^d mod N.
	SignBlinded(blinded *big.Int) (*big.Int, error)
}

// Signer is the party holding the private key. It never sees the message: the value
// it receives is opaque and it keeps no per-message state.
type Signer struct {
	priv PrivateKey
}

var _ BlindSigner = (*Signer)(nil)

// NewSigner creates a signer for the given private key.
func NewSigner(priv PrivateKey) (*Signer, error) {
	if err := priv.Validate(); err != nil {
		return nil, err
	}
	return &Signer{
		priv: PrivateKey{D: new(big.Int).Set(priv.D), N: new(big.Int).Set(priv.N)},
	}, nil
}

// Modulus returns the signer's modulus N.
func (s *Signer) Modulus() *big.Int {
	return new(big.Int).Set(s.priv.N)
}

// SignBlinded computes blinded^d mod N. The only rejected input is a value outside [0, N).
func (s *Signer) SignBlinded(blinded *big.Int) (*big.Int, error) {
	if !inRange(blinded, bigZero, s.priv.N) {
		return nil, errors.Wrap(ErrInvalidInput, "blinded value outside [0, N)")
	}
	return new(big.Int).Exp(blinded, s.priv.D, s.priv.N), nil
}
