// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file binds the free repository functions to a *gorm.DB
// so the search, cache and notify packages can depend on small interfaces.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/donor-search/internal/domain"
)

// Store is the SQLite-backed request, search-record, donor-location and
// receipt store.
type Store struct {
	DB *gorm.DB
}

// NewStore returns a Store over db.
func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// GetSearchRecord returns the record of key, or (nil, nil) when absent.
func (s *Store) GetSearchRecord(ctx context.Context, key domain.SearchKey) (*domain.DonorSearchRecord, error) {
	rec, err := GetSearchRecord(ctx, s.DB, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// SaveSearchRecord persists rec, merging its ledger with the stored one. A
// COMPLETED record stays COMPLETED.
func (s *Store) SaveSearchRecord(ctx context.Context, rec *domain.DonorSearchRecord) error {
	return SaveSearchRecord(ctx, s.DB, rec)
}

// ReopenSearchRecord persists rec and moves a COMPLETED record back to
// PENDING, reporting whether it did.
func (s *Store) ReopenSearchRecord(ctx context.Context, rec *domain.DonorSearchRecord) (bool, error) {
	return ReopenSearchRecord(ctx, s.DB, rec)
}

// GetDonationRequest returns the request of key, or (nil, nil) when absent.
func (s *Store) GetDonationRequest(ctx context.Context, key domain.SearchKey) (*domain.DonationRequest, error) {
	req, err := GetDonationRequest(ctx, s.DB, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return req, err
}

// CountAcceptedDonors returns how many donors accepted the request of key.
func (s *Store) CountAcceptedDonors(ctx context.Context, key domain.SearchKey) (int, error) {
	n, err := CountAcceptedDonors(ctx, s.DB, key.SeekerID, key.RequestID)
	return int(n), err
}

// QueryByGeohashPrefix pages through donor locations.
func (s *Store) QueryByGeohashPrefix(ctx context.Context, city, bloodGroup, prefix, cursor string, limit int) ([]domain.DonorLocation, string, error) {
	return QueryByGeohashPrefix(ctx, s.DB, city, bloodGroup, prefix, cursor, limit)
}

// ClaimNotification records a receipt for donorID. It reports false when the
// donor already holds a receipt for the request.
func (s *Store) ClaimNotification(ctx context.Context, key domain.SearchKey, donorID string) (bool, error) {
	_, err := CreateReceipt(ctx, s.DB, key.SeekerID, key.RequestID, donorID)
	switch {
	case errors.Is(err, ErrDuplicate):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// ReleaseNotification drops the receipt of donorID.
func (s *Store) ReleaseNotification(ctx context.Context, key domain.SearchKey, donorID string) error {
	return DeleteReceipt(ctx, s.DB, key.SeekerID, key.RequestID, donorID)
}
