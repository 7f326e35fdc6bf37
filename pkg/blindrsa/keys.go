package blindrsa

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"github.com/pkg/errors"
)

// PublicKey is the signer's public key (e, N).
type PublicKey struct {
	E *big.Int // Public exponent
	N *big.Int // Modulus
}

// PrivateKey is the signer's private key (d, N).
type PrivateKey struct {
	D *big.Int // Private exponent, e·d ≡ 1 (mod φ(N))
	N *big.Int // Modulus
}

// KeyPair holds both halves of an RSA key. It is never mutated after creation and
// can be shared between goroutines.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// Validate checks that the key is structurally usable.
func (k PublicKey) Validate() error {
	if k.E == nil || k.N == nil {
		return errors.Wrap(ErrInvalidInput, "public key has nil component")
	}
	if k.E.Cmp(big.NewInt(3)) < 0 || k.E.Bit(0) == 0 {
		return errors.Wrapf(ErrInvalidInput, "public exponent must be odd and >= 3, got %s", k.E.String())
	}
	if k.N.BitLen() <= DigestBits {
		return errors.Wrapf(ErrInvalidInput, "modulus of %d bits does not exceed the %d-bit digest", k.N.BitLen(), DigestBits)
	}
	return nil
}

// Size returns the modulus length in bits.
func (k PublicKey) Size() int {
	if k.N == nil {
		return 0
	}
	return k.N.BitLen()
}

// Fingerprint returns a stable hex identifier of the key, used to bind stored state and
// hand-off envelopes to the key they were produced for.
func (k PublicKey) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(EncodeInt(k.E)))
	h.Write([]byte{':'})
	h.Write([]byte(EncodeInt(k.N)))
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks that the key is structurally usable.
func (k PrivateKey) Validate() error {
	if k.D == nil || k.N == nil {
		return errors.Wrap(ErrInvalidInput, "private key has nil component")
	}
	if k.D.Sign() <= 0 {
		return errors.Wrap(ErrInvalidInput, "private exponent must be positive")
	}
	if k.N.Cmp(bigTwo) <= 0 {
		return errors.Wrap(ErrInvalidInput, "modulus too small")
	}
	return nil
}

// generatePrime is the prime source used by GenerateKeysWithConfig.
var generatePrime = rand.Prime

// GenerateKeys generates a key pair with an N of the given bit length and e = 65537.
func GenerateKeys(bits int) (*KeyPair, error) {
	cfg := DefaultKeyGenConfig()
	cfg.Bits = bits
	return GenerateKeysWithConfig(cfg)
}

// GenerateKeysWithConfig generates a key pair.
//
// Two independent primes of Bits/2 bits are drawn from crypto/rand.Prime. A pair is
// discarded and redrawn when p == q or gcd(e, (p-1)(q-1)) != 1; after MaxAttempts
// discarded pairs ErrKeyGeneration is returned.
func GenerateKeysWithConfig(cfg KeyGenConfig) (*KeyPair, error) {
	if cfg.Bits < MinKeyBits || cfg.Bits%2 != 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "key size must be an even number >= %d, got %d", MinKeyBits, cfg.Bits)
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "max attempts must be positive, got %d", cfg.MaxAttempts)
	}

	e := big.NewInt(DefaultPublicExponent)
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		p, err := generatePrime(cfg.reader(), cfg.Bits/2)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate prime p")
		}
		q, err := generatePrime(cfg.reader(), cfg.Bits/2)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate prime q")
		}

		kp, err := keyPairFromPrimes(p, q, e)
		if errors.Is(err, ErrKeyGeneration) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return kp, nil
	}

	return nil, errors.Wrapf(ErrKeyGeneration, "no valid prime pair after %d attempts", cfg.MaxAttempts)
}

// NewKeyPairFromPrimes builds a key pair from known primes p and q and public exponent e.
func NewKeyPairFromPrimes(p, q *big.Int, e int) (*KeyPair, error) {
	if p == nil || q == nil {
		return nil, errors.Wrap(ErrInvalidInput, "nil prime")
	}
	if !p.ProbablyPrime(32) || !q.ProbablyPrime(32) {
		return nil, errors.Wrap(ErrInvalidInput, "p and q must be prime")
	}
	exp := big.NewInt(int64(e))
	if exp.Cmp(big.NewInt(3)) < 0 || exp.Bit(0) == 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "public exponent must be odd and >= 3, got %d", e)
	}
	return keyPairFromPrimes(p, q, exp)
}

func keyPairFromPrimes(p, q, e *big.Int) (*KeyPair, error) {
	if p.Cmp(q) == 0 {
		return nil, errors.Wrap(ErrKeyGeneration, "p and q are equal")
	}

	n := new(big.Int).Mul(p, q)

	p1 := new(big.Int).Sub(p, bigOne)
	q1 := new(big.Int).Sub(q, bigOne)
	phi := new(big.Int).Mul(p1, q1)

	if GCD(e, phi).Cmp(bigOne) != 0 {
		return nil, errors.Wrap(ErrKeyGeneration, "e is not coprime to phi(N)")
	}

	d, err := ModInverse(e, phi)
	if err != nil {
		return nil, errors.Wrap(ErrKeyGeneration, err.Error())
	}

	return &KeyPair{
		Public:  PublicKey{E: new(big.Int).Set(e), N: n},
		Private: PrivateKey{D: d, N: new(big.Int).Set(n)},
	}, nil
}
