package blindrsa

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// voteVector is the fixed 1024-bit regression vector in fixtures/vote_vector.json.
type voteVector struct {
	Message        string `json:"message"`
	E              int    `json:"e"`
	P              string `json:"p"`
	Q              string `json:"q"`
	N              string `json:"n"`
	D              string `json:"d"`
	Digest         string `json:"digest"`
	R              string `json:"r"`
	BlindedMsg     string `json:"blinded_msg"`
	BlindSignature string `json:"blind_signature"`
	FinalSignature string `json:"final_signature"`
}

func fixturesDir() string {
	return filepath.Join("..", "..", "fixtures")
}

func loadVoteVector(t *testing.T) voteVector {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(fixturesDir(), "vote_vector.json"))
	require.NoError(t, err)

	var v voteVector
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func mustDecode(t *testing.T, s string) *big.Int {
	t.Helper()

	x, err := DecodeInt(s)
	require.NoError(t, err)
	return x
}

// testKeys generates a small but valid key pair.
func testKeys(t *testing.T) *KeyPair {
	t.Helper()

	keys, err := GenerateKeys(MinKeyBits)
	require.NoError(t, err)
	return keys
}

// evenModulusKey returns a key with N = 2·q, so every even blinding factor shares a
// factor with N.
func evenModulusKey(t *testing.T) *KeyPair {
	t.Helper()

	v := loadVoteVector(t)
	keys, err := NewKeyPairFromPrimes(big.NewInt(2), mustDecode(t, v.Q), DefaultPublicExponent)
	require.NoError(t, err)
	return keys
}

// zeroReader yields an endless stream of zero bytes.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
