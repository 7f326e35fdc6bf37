package blindrsa

import (
	"math/big"

	"github.com/pkg/errors"
)

var (
	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
	bigTwo  = big.NewInt(2)
)

// GCD returns the greatest common divisor of |a| and |b| using the Euclidean algorithm.
// GCD(a, 0) is |a|. A nil argument counts as zero. The arguments are not modified.
func GCD(a, b *big.Int) *big.Int {
	x, y := new(big.Int), new(big.Int)
	if a != nil {
		x.Abs(a)
	}
	if b != nil {
		y.Abs(b)
	}

	for y.Sign() != 0 {
		x.Mod(x, y)
		x, y = y, x
	}
	return x
}

// ModInverse returns x in [0, m) such that a·x ≡ 1 (mod m).
//
// The inverse is computed with the extended Euclidean algorithm. It fails with
// ErrNoInverse when gcd(a, m) != 1 and with ErrInvalidInput when m <= 0.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if a == nil || m == nil {
		return nil, errors.Wrap(ErrInvalidInput, "modular inverse of nil operand")
	}
	if m.Sign() <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "modulus must be positive, got %s", m.String())
	}

	g, x := extendedGCD(new(big.Int).Mod(a, m), m)
	if g.Cmp(bigOne) != 0 {
		return nil, errors.Wrapf(ErrNoInverse, "gcd(a, m) = %s", g.String())
	}

	return x.Mod(x, m), nil
}

// extendedGCD returns (g, x) with a·x + b·y = g = gcd(a, b) for non-negative a and b.
// Iterative form of the textbook recursion.
func extendedGCD(a, b *big.Int) (*big.Int, *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldS, s := big.NewInt(1), big.NewInt(0)

	q := new(big.Int)
	tmp := new(big.Int)
	for r.Sign() != 0 {
		q.Quo(oldR, r)

		// (oldR, r) = (r, oldR - q·r)
		tmp.Mul(q, r)
		oldR.Sub(oldR, tmp)
		oldR, r = r, oldR

		// (oldS, s) = (s, oldS - q·s)
		tmp.Mul(q, s)
		oldS.Sub(oldS, tmp)
		oldS, s = s, oldS
	}
	return oldR, oldS
}
