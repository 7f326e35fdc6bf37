package blindrsa

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
)

// Result is the outcome of one complete blind-signing transaction.
// It never contains the blinding factor.
type Result struct {
	Message        []byte   // Original message
	Digest         *big.Int // SHA-256 digest m
	BlindedValue   *big.Int // m · r^e mod N, as seen by the signer
	BlindSignature *big.Int // Signer output (m · r^e)^d mod N
	Signature      *big.Int // Unblinded signature m^d mod N
	Verified       bool     // Whether Signature verified against Message
}

// Client runs the three protocol rounds (blind, sign, unblind and verify) in one
// process, with the signer behind the BlindSigner interface.
type Client struct {
	owner  *MessageOwner
	signer BlindSigner
}

// NewClient creates a client for the signer's public key.
func NewClient(pub PublicKey, signer BlindSigner) (*Client, error) {
	if signer == nil {
		return nil, errors.Wrap(ErrInvalidInput, "nil signer")
	}
	owner, err := NewMessageOwner(pub)
	if err != nil {
		return nil, err
	}
	return &Client{owner: owner, signer: signer}, nil
}

// WithBlindingConfig sets the blinding factor sampling configuration.
func (c *Client) WithBlindingConfig(cfg BlindingConfig) *Client {
	c.owner.WithBlindingConfig(cfg)
	return c
}

// WithSigner replaces the signer.
func (c *Client) WithSigner(signer BlindSigner) *Client {
	c.signer = signer
	return c
}

// Sign obtains a signature on message without revealing it to the signer.
//
// A signature that fails verification is not an error: the Result is returned with
// Verified set to false.
func (c *Client) Sign(ctx context.Context, message []byte) (*Result, error) {
	bc, err := c.owner.Blind(message)
	if err != nil {
		return nil, errors.Wrap(err, "failed to blind message")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blindSig, err := c.signer.SignBlinded(bc.BlindedValue())
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign blinded message")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig, err := c.owner.Unblind(blindSig, bc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unblind signature")
	}

	verified, err := c.owner.Verify(message, sig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify signature")
	}

	return &Result{
		Message:        append([]byte(nil), message...),
		Digest:         bc.Digest(),
		BlindedValue:   bc.BlindedValue(),
		BlindSignature: blindSig,
		Signature:      sig,
		Verified:       verified,
	}, nil
}
