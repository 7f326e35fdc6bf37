// Package roles runs the message owner and signer sides of the blind-signing protocol on
// top of the core arithmetic, keeping owner state in the store and counting operations.
package roles

import (
	"context"
	"math/big"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mahdiidarabi/blind-rsa/internal/handoff"
	"github.com/mahdiidarabi/blind-rsa/internal/logging"
	"github.com/mahdiidarabi/blind-rsa/internal/metrics"
	"github.com/mahdiidarabi/blind-rsa/internal/store"
	"github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
)

// ErrKeyMismatch is returned when an envelope was produced for a different signer key.
var ErrKeyMismatch = errors.New("key fingerprint mismatch")

// Outcome is the result of finishing one owner request.
type Outcome struct {
	RequestID uuid.UUID
	Message   []byte
	Signature *big.Int
	Verified  bool
	SignerID  string
}

// OwnerService is the message owner's side: it blinds messages, keeps the blinding state
// private in the store, and unblinds and verifies returned signatures.
type OwnerService struct {
	store   *store.Store
	metrics *metrics.Metrics
	logger  logging.Logger
	cfg     blindrsa.BlindingConfig
}

// NewOwnerService creates an owner service.
func NewOwnerService(st *store.Store, m *metrics.Metrics, logger logging.Logger) *OwnerService {
	return &OwnerService{
		store:   st,
		metrics: m,
		logger:  logger.NewSystem("owner"),
		cfg:     blindrsa.DefaultBlindingConfig(),
	}
}

// WithBlindingConfig sets the blinding factor sampling configuration.
func (s *OwnerService) WithBlindingConfig(cfg blindrsa.BlindingConfig) *OwnerService {
	s.cfg = cfg
	return s
}

// Prepare blinds message for the signer key pub, records the owner-private state and
// returns the request to hand to the signer.
func (s *OwnerService) Prepare(ctx context.Context, pub blindrsa.PublicKey, message []byte) (*handoff.BlindRequest, error) {
	owner, err := blindrsa.NewMessageOwner(pub)
	if err != nil {
		return nil, err
	}

	bc, err := owner.WithBlindingConfig(s.cfg).Blind(message)
	if err != nil {
		s.metrics.RecordFailure(metrics.OpBlind)
		return nil, errors.Wrap(err, "failed to blind message")
	}

	req := handoff.NewBlindRequest(pub, bc.BlindedValue())
	pending := &store.PendingRequest{
		RequestID:      req.ID.String(),
		KeyFingerprint: req.KeyFingerprint,
		PublicE:        blindrsa.EncodeInt(pub.E),
		PublicN:        blindrsa.EncodeInt(pub.N),
		Message:        append([]byte(nil), message...),
		Digest:         blindrsa.EncodeInt(bc.Digest()),
		BlindingFactor: blindrsa.EncodeInt(bc.BlindingFactor()),
		BlindedValue:   blindrsa.EncodeInt(bc.BlindedValue()),
	}
	if err := s.store.SavePending(ctx, pending); err != nil {
		return nil, err
	}

	s.metrics.Blindings.Inc()
	s.logger.Info("message blinded", "request", req.ID, "key", req.KeyFingerprint)
	return req, nil
}

// Finish unblinds the signature in resp and verifies it against the stored message.
//
// If signerID is non-empty the response must carry a valid attestation from that signer.
// A signature that does not verify is reported through Outcome.Verified and recorded; it
// is not an error.
func (s *OwnerService) Finish(ctx context.Context, resp *handoff.BlindResponse, signerID string) (*Outcome, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	lg := s.logger.With("request", resp.RequestID)

	pending, err := s.store.GetPending(ctx, resp.RequestID.String())
	if err != nil {
		return nil, err
	}
	if pending.Status != store.StatusPending {
		return nil, errors.Wrapf(store.ErrAlreadyCompleted, "request %s", pending.RequestID)
	}
	if resp.KeyFingerprint != pending.KeyFingerprint {
		return nil, errors.Wrapf(ErrKeyMismatch, "response signed under %s, request was for %s", resp.KeyFingerprint, pending.KeyFingerprint)
	}
	if signerID != "" {
		if err := handoff.VerifyAttestation(resp, signerID); err != nil {
			s.metrics.RecordFailure(metrics.OpUnblind)
			lg.Warn("rejected response", "error", err)
			return nil, err
		}
	}

	owner, bc, err := restore(pending)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt owner state for request %s", pending.RequestID)
	}

	sig, err := owner.Unblind(resp.BlindSignature.Int(), bc)
	if err != nil {
		s.metrics.RecordFailure(metrics.OpUnblind)
		return nil, errors.Wrap(err, "failed to unblind signature")
	}
	s.metrics.Unblindings.Inc()

	verified, err := owner.Verify(pending.Message, sig)
	if err != nil {
		s.metrics.RecordFailure(metrics.OpVerify)
		return nil, errors.Wrap(err, "failed to verify signature")
	}
	s.metrics.RecordVerification(verified)

	if err := s.store.CompletePending(ctx, pending.RequestID, blindrsa.EncodeInt(sig), verified); err != nil {
		return nil, err
	}

	if verified {
		lg.Info("signature verified")
	} else {
		lg.Warn("signature did not verify")
	}

	return &Outcome{
		RequestID: resp.RequestID,
		Message:   pending.Message,
		Signature: sig,
		Verified:  verified,
		SignerID:  resp.SignerID,
	}, nil
}

// restore rebuilds the owner and blinding context from a stored request and checks that the
// stored digest still matches the stored message.
func restore(p *store.PendingRequest) (*blindrsa.MessageOwner, *blindrsa.BlindingContext, error) {
	values := make([]*big.Int, 0, 5)
	for _, enc := range []string{p.PublicE, p.PublicN, p.Digest, p.BlindingFactor, p.BlindedValue} {
		v, err := blindrsa.DecodeInt(enc)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, v)
	}
	pub := blindrsa.PublicKey{E: values[0], N: values[1]}
	if pub.Fingerprint() != p.KeyFingerprint {
		return nil, nil, errors.Wrap(blindrsa.ErrInvalidInput, "stored key does not match fingerprint")
	}

	digest, err := blindrsa.Digest(pub, p.Message)
	if err != nil {
		return nil, nil, err
	}
	if digest.Cmp(values[2]) != 0 {
		return nil, nil, errors.Wrap(blindrsa.ErrInvalidInput, "stored digest does not match message")
	}

	bc, err := blindrsa.RestoreBlindingContext(pub, values[2], values[3], values[4])
	if err != nil {
		return nil, nil, err
	}
	owner, err := blindrsa.NewMessageOwner(pub)
	if err != nil {
		return nil, nil, err
	}
	return owner, bc, nil
}
