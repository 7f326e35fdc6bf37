package blindrsa

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCD(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{48, 18, 6},
		{18, 48, 6},
		{17, 0, 17},
		{0, 5, 5},
		{0, 0, 0},
		{-12, 8, 4},
		{65537, 3120, 1},
		{3233, 61, 61},
	}

	for _, tt := range tests {
		got := GCD(big.NewInt(tt.a), big.NewInt(tt.b))
		assert.Equal(t, tt.want, got.Int64(), "gcd(%d, %d)", tt.a, tt.b)
	}
}

func TestGCD_NilIsZero(t *testing.T) {
	assert.Equal(t, int64(12), GCD(nil, big.NewInt(-12)).Int64())
	assert.Equal(t, int64(7), GCD(big.NewInt(7), nil).Int64())
	assert.Zero(t, GCD(nil, nil).Sign())
}

func TestGCD_DoesNotMutateArguments(t *testing.T) {
	a, b := big.NewInt(48), big.NewInt(18)
	GCD(a, b)

	assert.Equal(t, int64(48), a.Int64())
	assert.Equal(t, int64(18), b.Int64())
}

func TestGCD_MatchesMathBig(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	limit := new(big.Int).Lsh(big.NewInt(1), 300)

	for i := 0; i < 200; i++ {
		a := new(big.Int).Rand(rng, limit)
		b := new(big.Int).Rand(rng, limit)

		want := new(big.Int).GCD(nil, nil, a, b)
		assert.Zero(t, want.Cmp(GCD(a, b)), "gcd(%s, %s)", a, b)
	}
}

func TestModInverse(t *testing.T) {
	tests := []struct {
		a, m, want int64
	}{
		{3, 11, 4},
		{17, 3120, 2753},
		{10, 17, 12},
		{-3, 11, 7}, // -3 ≡ 8 and 8·7 = 56 ≡ 1
		{14, 11, 4}, // reduced to 3 first
		{5, 1, 0},
	}

	for _, tt := range tests {
		got, err := ModInverse(big.NewInt(tt.a), big.NewInt(tt.m))
		require.NoError(t, err, "inverse(%d, %d)", tt.a, tt.m)
		assert.Equal(t, tt.want, got.Int64(), "inverse(%d, %d)", tt.a, tt.m)
	}
}

func TestModInverse_NoInverse(t *testing.T) {
	pairs := [][2]int64{{6, 9}, {0, 7}, {61, 3233}, {2, 4}}

	for _, p := range pairs {
		_, err := ModInverse(big.NewInt(p[0]), big.NewInt(p[1]))
		assert.ErrorIs(t, err, ErrNoInverse, "inverse(%d, %d)", p[0], p[1])
	}
}

func TestModInverse_InvalidModulus(t *testing.T) {
	_, err := ModInverse(big.NewInt(3), big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ModInverse(big.NewInt(3), big.NewInt(-11))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ModInverse(nil, big.NewInt(11))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestModInverse_Identity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	limit := new(big.Int).Lsh(big.NewInt(1), 1024)

	checked := 0
	for checked < 100 {
		m := new(big.Int).Rand(rng, limit)
		a := new(big.Int).Rand(rng, limit)
		if m.Cmp(bigOne) <= 0 || GCD(a, m).Cmp(bigOne) != 0 {
			continue
		}

		x, err := ModInverse(a, m)
		require.NoError(t, err)

		// (a · x) mod m == 1 and x in [0, m)
		prod := new(big.Int).Mul(a, x)
		assert.Zero(t, prod.Mod(prod, m).Cmp(bigOne))
		assert.True(t, x.Sign() >= 0 && x.Cmp(m) < 0)
		assert.Zero(t, x.Cmp(new(big.Int).ModInverse(a, m)))
		checked++
	}
}
