package blindrsa

import "github.com/pkg/errors"

var (
	// ErrKeyGeneration is returned when no valid key pair was found within the retry budget.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrBlindingFactor is returned when no blinding factor coprime to N could be used.
	ErrBlindingFactor = errors.New("no usable blinding factor")

	// ErrNoInverse is returned when a modular inverse is requested for a non-coprime pair.
	ErrNoInverse = errors.New("modular inverse does not exist")

	// ErrInvalidInput is returned for values outside their residue range and for
	// malformed keys or encoded integers.
	ErrInvalidInput = errors.New("invalid input")
)
