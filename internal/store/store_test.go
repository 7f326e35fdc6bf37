package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/blind-rsa/internal/logging"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", logging.NewLogger("test"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newPending(fingerprint string) *PendingRequest {
	return &PendingRequest{
		RequestID:      uuid.NewString(),
		KeyFingerprint: fingerprint,
		PublicE:        "10001",
		PublicN:        "ca1",
		Message:        []byte("This is my secret vote: Candidate A"),
		Digest:         "aa",
		BlindingFactor: "bb",
		BlindedValue:   "cc",
	}
}

func TestStore_PendingLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	req := newPending("fp")
	req.Verified = true // ignored on save
	require.NoError(t, s.SavePending(ctx, req))

	got, err := s.GetPending(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, req.Message, got.Message)
	assert.Equal(t, "bb", got.BlindingFactor)
	assert.False(t, got.Verified)

	require.NoError(t, s.CompletePending(ctx, req.RequestID, "dd", true))

	got, err = s.GetPending(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "dd", got.Signature)
	assert.True(t, got.Verified)

	err = s.CompletePending(ctx, req.RequestID, "ee", false)
	assert.True(t, errors.Is(err, ErrAlreadyCompleted), "got %v", err)

	got, err = s.GetPending(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "dd", got.Signature)
}

func TestStore_NotFound(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.GetPending(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.CompletePending(ctx, "missing", "dd", true)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_DuplicateRequest(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	req := newPending("fp")
	require.NoError(t, s.SavePending(ctx, req))

	dup := *req
	assert.Error(t, s.SavePending(ctx, &dup))
}

func TestStore_ListPending(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a, b := newPending("fp"), newPending("fp")
	require.NoError(t, s.SavePending(ctx, a))
	require.NoError(t, s.SavePending(ctx, b))
	require.NoError(t, s.CompletePending(ctx, a.RequestID, "dd", true))

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.RequestID, pending[0].RequestID)
}

func TestStore_IssuedJournal(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordIssued(ctx))
	require.NoError(t, s.RecordIssued(ctx,
		&IssuedSignature{RequestID: uuid.NewString(), KeyFingerprint: "k1", BlindedValue: "01", BlindSignature: "02"},
		&IssuedSignature{RequestID: uuid.NewString(), KeyFingerprint: "k1", BlindedValue: "03", BlindSignature: "04"},
		&IssuedSignature{RequestID: uuid.NewString(), KeyFingerprint: "k2", BlindedValue: "05", BlindSignature: "06"},
	))

	n, err := s.CountIssued(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.CountIssued(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_InMemoryDatabasesAreIsolated(t *testing.T) {
	a := setupStore(t)
	b := setupStore(t)
	ctx := context.Background()

	req := newPending("fp")
	require.NoError(t, a.SavePending(ctx, req))

	_, err := b.GetPending(ctx, req.RequestID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_FilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")
	ctx := context.Background()
	req := newPending("fp")

	s, err := Open(path, logging.NewLogger("test"))
	require.NoError(t, err)
	require.NoError(t, s.SavePending(ctx, req))
	require.NoError(t, s.Close())

	s, err = Open(path, logging.NewLogger("test"))
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetPending(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, req.KeyFingerprint, got.KeyFingerprint)
}
