package blindrsa

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_SignBlinded(t *testing.T) {
	keys, err := NewKeyPairFromPrimes(big.NewInt(61), big.NewInt(53), 17)
	require.NoError(t, err)

	signer, err := NewSigner(keys.Private)
	require.NoError(t, err)

	// 65^2753 mod 3233 = 2790 (textbook RSA example, run backwards)
	sig, err := signer.SignBlinded(big.NewInt(2790))
	require.NoError(t, err)
	assert.Equal(t, int64(65), sig.Int64())

	zero, err := signer.SignBlinded(big.NewInt(0))
	require.NoError(t, err)
	assert.Zero(t, zero.Sign())
}

func TestSigner_SignBlinded_OutOfRange(t *testing.T) {
	keys := testKeys(t)
	signer, err := NewSigner(keys.Private)
	require.NoError(t, err)

	for _, v := range []*big.Int{nil, big.NewInt(-1), new(big.Int).Set(keys.Private.N), new(big.Int).Lsh(keys.Private.N, 1)} {
		_, err := signer.SignBlinded(v)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestSigner_Stateless(t *testing.T) {
	keys := testKeys(t)
	signer, err := NewSigner(keys.Private)
	require.NoError(t, err)

	v := big.NewInt(123456789)
	a, err := signer.SignBlinded(v)
	require.NoError(t, err)
	_, err = signer.SignBlinded(big.NewInt(42))
	require.NoError(t, err)
	b, err := signer.SignBlinded(v)
	require.NoError(t, err)

	assert.Zero(t, a.Cmp(b))
	assert.Equal(t, int64(123456789), v.Int64(), "input must not be modified")
}

func TestNewSigner_InvalidKey(t *testing.T) {
	_, err := NewSigner(PrivateKey{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
