package blindrsa

import (
	"crypto/rand"
	"io"
)

const (
	// DefaultPublicExponent is the conventional RSA public exponent F4.
	DefaultPublicExponent = 65537

	// MinKeyBits is the smallest modulus accepted by GenerateKeys. A 512-bit N always
	// exceeds a SHA-256 digest, so digests never need to be reduced.
	MinKeyBits = 512

	// DefaultKeyBits matches the key size of the sample vote protocol.
	DefaultKeyBits = 1024
)

// KeyGenConfig configures key generation.
type KeyGenConfig struct {
	// Bits is the modulus size. Each prime has Bits/2 bits.
	Bits int

	// MaxAttempts bounds the number of fresh prime pairs tried before giving up.
	MaxAttempts int

	// Rand is the entropy source for prime generation (nil = crypto/rand).
	Rand io.Reader
}

// DefaultKeyGenConfig returns a sensible default configuration.
func DefaultKeyGenConfig() KeyGenConfig {
	return KeyGenConfig{
		Bits:        DefaultKeyBits,
		MaxAttempts: 16,
		Rand:        rand.Reader,
	}
}

// BlindingConfig configures blinding factor sampling.
type BlindingConfig struct {
	// MaxAttempts bounds how many candidates are drawn before ErrBlindingFactor.
	MaxAttempts int

	// Rand is the entropy source for r (nil = crypto/rand).
	Rand io.Reader
}

// DefaultBlindingConfig returns a sensible default configuration.
func DefaultBlindingConfig() BlindingConfig {
	return BlindingConfig{
		MaxAttempts: 64,
		Rand:        rand.Reader,
	}
}

func (c KeyGenConfig) reader() io.Reader {
	if c.Rand == nil {
		return rand.Reader
	}
	return c.Rand
}

func (c BlindingConfig) reader() io.Reader {
	if c.Rand == nil {
		return rand.Reader
	}
	return c.Rand
}
