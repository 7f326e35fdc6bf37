package roles

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/mahdiidarabi/blind-rsa/internal/handoff"
	"github.com/mahdiidarabi/blind-rsa/internal/logging"
	"github.com/mahdiidarabi/blind-rsa/internal/metrics"
	"github.com/mahdiidarabi/blind-rsa/internal/store"
	"github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
)

// SignerService is the signer's side. It signs blinded values it cannot read, journals what
// it issued and attests its responses.
type SignerService struct {
	fingerprint string
	signer      blindrsa.BlindSigner
	attestor    *handoff.Attestor
	store       *store.Store
	metrics     *metrics.Metrics
	logger      logging.Logger
	workers     int
}

// NewSignerService creates a signer service for keys. attestor and st may be nil to skip
// attestation or journaling.
func NewSignerService(keys *blindrsa.KeyPair, attestor *handoff.Attestor, st *store.Store, m *metrics.Metrics, logger logging.Logger) (*SignerService, error) {
	if keys == nil {
		return nil, errors.Wrap(blindrsa.ErrInvalidInput, "nil key pair")
	}
	signer, err := blindrsa.NewSigner(keys.Private)
	if err != nil {
		return nil, err
	}
	fingerprint := keys.Public.Fingerprint()

	return &SignerService{
		fingerprint: fingerprint,
		signer:      signer,
		attestor:    attestor,
		store:       st,
		metrics:     m,
		logger:      logger.NewSystem("signer").With("key", fingerprint),
	}, nil
}

// WithWorkers bounds the number of parallel signatures in HandleBatch (0 = number of CPUs).
func (s *SignerService) WithWorkers(workers int) *SignerService {
	s.workers = workers
	return s
}

// Fingerprint returns the fingerprint of the signing key.
func (s *SignerService) Fingerprint() string {
	return s.fingerprint
}

// Handle signs a single request.
func (s *SignerService) Handle(ctx context.Context, req *handoff.BlindRequest) (*handoff.BlindResponse, error) {
	resps, err := s.HandleBatch(ctx, []*handoff.BlindRequest{req})
	if err != nil {
		return nil, err
	}
	return resps[0], nil
}

// HandleBatch signs independent requests in parallel. Every request is checked before any
// is signed; a single invalid request rejects the batch.
func (s *SignerService) HandleBatch(ctx context.Context, reqs []*handoff.BlindRequest) ([]*handoff.BlindResponse, error) {
	blinded := make([]*big.Int, len(reqs))
	for i, req := range reqs {
		if req == nil {
			return nil, errors.Wrapf(blindrsa.ErrInvalidInput, "request %d is nil", i)
		}
		if err := req.Validate(); err != nil {
			return nil, errors.Wrapf(err, "request %s", req.ID)
		}
		if req.KeyFingerprint != s.fingerprint {
			return nil, errors.Wrapf(ErrKeyMismatch, "request %s is for key %s", req.ID, req.KeyFingerprint)
		}
		blinded[i] = req.BlindedMessage.Int()
	}

	sigs, err := blindrsa.SignBatch(ctx, s.signer, blinded, s.workers)
	if err != nil {
		s.metrics.RecordFailure(metrics.OpSign)
		return nil, err
	}

	resps := make([]*handoff.BlindResponse, len(reqs))
	journal := make([]*store.IssuedSignature, len(reqs))
	for i, req := range reqs {
		resp := handoff.NewBlindResponse(req, sigs[i])
		if s.attestor != nil {
			s.attestor.Attest(resp)
		}
		resps[i] = resp
		journal[i] = &store.IssuedSignature{
			RequestID:      req.ID.String(),
			KeyFingerprint: s.fingerprint,
			BlindedValue:   blindrsa.EncodeInt(blinded[i]),
			BlindSignature: blindrsa.EncodeInt(sigs[i]),
		}
	}

	if s.store != nil {
		if err := s.store.RecordIssued(ctx, journal...); err != nil {
			return nil, err
		}
	}

	s.metrics.BlindSignatures.Add(float64(len(reqs)))
	s.metrics.SignBatchSize.Observe(float64(len(reqs)))
	s.logger.Info("signed blinded values", "count", len(reqs))
	return resps, nil
}
