package blindrsa

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tamperingSigner returns a valid blind signature shifted by one.
type tamperingSigner struct {
	inner *Signer
}

func (s tamperingSigner) SignBlinded(v *big.Int) (*big.Int, error) {
	sig, err := s.inner.SignBlinded(v)
	if err != nil {
		return nil, err
	}
	sig.Add(sig, bigOne)
	return sig.Mod(sig, s.inner.priv.N), nil
}

type failingSigner struct{}

func (failingSigner) SignBlinded(*big.Int) (*big.Int, error) {
	return nil, errors.New("signer offline")
}

// recordingSigner remembers every value it was asked to sign.
type recordingSigner struct {
	inner BlindSigner
	seen  []*big.Int
}

func (s *recordingSigner) SignBlinded(v *big.Int) (*big.Int, error) {
	s.seen = append(s.seen, new(big.Int).Set(v))
	return s.inner.SignBlinded(v)
}

func TestClient_Sign(t *testing.T) {
	keys := testKeys(t)
	signer, err := NewSigner(keys.Private)
	require.NoError(t, err)
	recorder := &recordingSigner{inner: signer}

	client, err := NewClient(keys.Public, recorder)
	require.NoError(t, err)

	msg := []byte("This is my secret vote: Candidate A")
	result, err := client.Sign(context.Background(), msg)
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Equal(t, msg, result.Message)
	assert.Zero(t, HashMessage(msg).Cmp(result.Digest))

	// The signer only ever saw the blinded value, never the digest.
	require.Len(t, recorder.seen, 1)
	assert.Zero(t, recorder.seen[0].Cmp(result.BlindedValue))
	assert.NotZero(t, recorder.seen[0].Cmp(result.Digest))

	want := new(big.Int).Exp(result.Digest, keys.Private.D, keys.Private.N)
	assert.Zero(t, want.Cmp(result.Signature))
}

func TestClient_Sign_TamperedSignature(t *testing.T) {
	keys := testKeys(t)
	signer, err := NewSigner(keys.Private)
	require.NoError(t, err)

	client, err := NewClient(keys.Public, tamperingSigner{inner: signer})
	require.NoError(t, err)

	result, err := client.Sign(context.Background(), []byte("m"))
	require.NoError(t, err, "a failed verification is a result, not an error")
	assert.False(t, result.Verified)
}

func TestClient_Sign_SignerError(t *testing.T) {
	keys := testKeys(t)
	client, err := NewClient(keys.Public, failingSigner{})
	require.NoError(t, err)

	_, err = client.Sign(context.Background(), []byte("m"))
	assert.ErrorContains(t, err, "signer offline")
}

func TestClient_Sign_Cancelled(t *testing.T) {
	keys := testKeys(t)
	signer, err := NewSigner(keys.Private)
	require.NoError(t, err)
	recorder := &recordingSigner{inner: signer}

	client, err := NewClient(keys.Public, recorder)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Sign(ctx, []byte("m"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recorder.seen)
}

func TestClient_WithSigner(t *testing.T) {
	keys := testKeys(t)
	signer, err := NewSigner(keys.Private)
	require.NoError(t, err)

	client, err := NewClient(keys.Public, failingSigner{})
	require.NoError(t, err)

	result, err := client.WithSigner(signer).Sign(context.Background(), []byte("m"))
	require.NoError(t, err)
	assert.True(t, result.Verified)
}

func TestNewClient_Invalid(t *testing.T) {
	keys := testKeys(t)

	_, err := NewClient(keys.Public, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewClient(PublicKey{}, failingSigner{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
