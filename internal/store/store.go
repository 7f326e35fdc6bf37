// Package store persists owner-private blinding state and the signer's issuance journal in
// SQLite through gorm.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mahdiidarabi/blind-rsa/internal/logging"
)

var (
	// ErrNotFound is returned for an unknown request id.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyCompleted is returned when a pending request is completed twice.
	ErrAlreadyCompleted = errors.New("request already completed")
)

// RequestStatus is the lifecycle state of an owner request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusCompleted RequestStatus = "completed"
)

// PendingRequest is the owner's private record of one blind-signing transaction. Integers
// are stored hex encoded. None of these fields except BlindedValue may leave the owner.
type PendingRequest struct {
	RequestID      string        `gorm:"column:request_id;primaryKey"`
	KeyFingerprint string        `gorm:"column:key_fingerprint;not null;index"`
	PublicE        string        `gorm:"column:public_e;type:text;not null"`
	PublicN        string        `gorm:"column:public_n;type:text;not null"`
	Message        []byte        `gorm:"column:message;not null"`
	Digest         string        `gorm:"column:digest;type:text;not null"`
	BlindingFactor string        `gorm:"column:blinding_factor;type:text;not null"`
	BlindedValue   string        `gorm:"column:blinded_value;type:text;not null"`
	Status         RequestStatus `gorm:"column:status;not null"`
	Signature      string        `gorm:"column:signature;type:text"`
	Verified       bool          `gorm:"column:verified;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for the PendingRequest model
func (PendingRequest) TableName() string {
	return "pending_requests"
}

// IssuedSignature is one entry of the signer's journal. It holds only values the signer
// has seen: the opaque blinded value and the blind signature it returned.
type IssuedSignature struct {
	ID             uint   `gorm:"primaryKey"`
	RequestID      string `gorm:"column:request_id;not null;index"`
	KeyFingerprint string `gorm:"column:key_fingerprint;not null;index"`
	BlindedValue   string `gorm:"column:blinded_value;type:text;not null"`
	BlindSignature string `gorm:"column:blind_signature;type:text;not null"`
	CreatedAt      time.Time
}

// TableName specifies the table name for the IssuedSignature model
func (IssuedSignature) TableName() string {
	return "issued_signatures"
}

// Store wraps the database handle.
type Store struct {
	db     *gorm.DB
	logger logging.Logger
}

// Open opens or creates the SQLite database at path and migrates it. An empty path opens a
// private in-memory database that lives until Close.
func Open(path string, logger logging.Logger) (*Store, error) {
	logger = logger.NewSystem("store")

	var dsn string
	if path != "" {
		logger.Debug("connecting to sqlite", "path", path)
		dsn = fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", path)
	} else {
		logger.Debug("connecting to in-memory sqlite")
		dsn = fmt.Sprintf("file:blindsig-%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access database handle")
	}
	// SQLite serialises writers; one connection also keeps an in-memory database alive.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&PendingRequest{}, &IssuedSignature{}); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SavePending stores a new owner request in the pending state.
func (s *Store) SavePending(ctx context.Context, req *PendingRequest) error {
	req.Status = StatusPending
	req.Signature = ""
	req.Verified = false
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return errors.Wrapf(err, "failed to save request %s", req.RequestID)
	}
	s.logger.Debug("saved pending request", "request", req.RequestID, "key", req.KeyFingerprint)
	return nil
}

// GetPending loads an owner request by id.
func (s *Store) GetPending(ctx context.Context, requestID string) (*PendingRequest, error) {
	var req PendingRequest
	err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "request %s", requestID)
		}
		return nil, errors.Wrapf(err, "failed to load request %s", requestID)
	}
	return &req, nil
}

// ListPending returns requests still waiting for a blind signature, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]PendingRequest, error) {
	var reqs []PendingRequest
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending requests")
	}
	return reqs, nil
}

// CompletePending records the unblinded signature and its verification result. A request
// can be completed only once.
func (s *Store) CompletePending(ctx context.Context, requestID, signature string, verified bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PendingRequest{}).
			Where("request_id = ? AND status = ?", requestID, StatusPending).
			Updates(map[string]interface{}{
				"status":    StatusCompleted,
				"signature": signature,
				"verified":  verified,
			})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "failed to complete request %s", requestID)
		}
		if res.RowsAffected == 1 {
			return nil
		}

		var count int64
		if err := tx.Model(&PendingRequest{}).Where("request_id = ?", requestID).Count(&count).Error; err != nil {
			return errors.Wrapf(err, "failed to load request %s", requestID)
		}
		if count == 0 {
			return errors.Wrapf(ErrNotFound, "request %s", requestID)
		}
		return errors.Wrapf(ErrAlreadyCompleted, "request %s", requestID)
	})
}

// RecordIssued appends entries to the signer journal.
func (s *Store) RecordIssued(ctx context.Context, entries ...*IssuedSignature) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(entries).Error; err != nil {
		return errors.Wrap(err, "failed to record issued signatures")
	}
	return nil
}

// CountIssued returns how many blind signatures were issued under a key fingerprint.
func (s *Store) CountIssued(ctx context.Context, keyFingerprint string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&IssuedSignature{}).
		Where("key_fingerprint = ?", keyFingerprint).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count issued signatures")
	}
	return count, nil
}
