package blindrsa

import (
	"crypto/sha256"
	"math/big"

	"github.com/pkg/errors"
)

// DigestBits is the size of a message digest. PublicKey.Validate requires a longer modulus.
const DigestBits = 8 * sha256.Size

// HashMessage hashes a message using SHA-256 and returns the digest as a big-endian
// unsigned integer.
func HashMessage(message []byte) *big.Int {
	h := sha256.Sum256(message)
	return new(big.Int).SetBytes(h[:])
}

// Digest returns the message digest for use under pub. Digests that do not fit below
// N are rejected rather than reduced, since a reduced digest would sign a different value.
func Digest(pub PublicKey, message []byte) (*big.Int, error) {
	if err := pub.Validate(); err != nil {
		return nil, err
	}

	m := HashMessage(message)
	if m.Cmp(pub.N) >= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "digest does not fit a %d-bit modulus", pub.Size())
	}
	return m, nil
}
