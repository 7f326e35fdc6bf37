package blindrsa

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVoteVector replays the sample vote transaction against a fixed 1024-bit key and
// a fixed blinding factor, and checks every intermediate value twice: against the
// recorded fixture and against the textbook formulas computed directly with math/big.
func TestVoteVector(t *testing.T) {
	v := loadVoteVector(t)

	keys, err := NewKeyPairFromPrimes(mustDecode(t, v.P), mustDecode(t, v.Q), v.E)
	require.NoError(t, err)

	n := keys.Public.N
	e := keys.Public.E
	d := keys.Private.D
	require.Equal(t, 1024, n.BitLen())
	assert.Zero(t, mustDecode(t, v.N).Cmp(n))
	assert.Zero(t, mustDecode(t, v.D).Cmp(d))

	owner, err := NewMessageOwner(keys.Public)
	require.NoError(t, err)
	signer, err := NewSigner(keys.Private)
	require.NoError(t, err)

	msg := []byte(v.Message)
	r := mustDecode(t, v.R)

	bc, err := owner.BlindWithFactor(msg, r)
	require.NoError(t, err)
	blindSig, err := signer.SignBlinded(bc.BlindedValue())
	require.NoError(t, err)
	sig, err := owner.Unblind(blindSig, bc)
	require.NoError(t, err)

	// Independent recomputation.
	m := HashMessage(msg)
	wantBlinded := new(big.Int).Exp(r, e, n)
	wantBlinded.Mul(wantBlinded, m).Mod(wantBlinded, n)
	wantBlindSig := new(big.Int).Exp(wantBlinded, d, n)
	rInv := new(big.Int).ModInverse(r, n)
	wantSig := new(big.Int).Mul(wantBlindSig, rInv)
	wantSig.Mod(wantSig, n)

	assert.Equal(t, v.Digest, EncodeInt(bc.Digest()))
	assert.Zero(t, m.Cmp(bc.Digest()))

	assert.Equal(t, v.BlindedMsg, EncodeInt(bc.BlindedValue()))
	assert.Zero(t, wantBlinded.Cmp(bc.BlindedValue()))

	assert.Equal(t, v.BlindSignature, EncodeInt(blindSig))
	assert.Zero(t, wantBlindSig.Cmp(blindSig))

	assert.Equal(t, v.FinalSignature, EncodeInt(sig))
	assert.Zero(t, wantSig.Cmp(sig))
	assert.Zero(t, new(big.Int).Exp(m, d, n).Cmp(sig))

	ok, err := owner.Verify(msg, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}
