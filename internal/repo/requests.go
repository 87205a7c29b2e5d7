// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the thin donation-request and acceptance
// queries the search consults at the top of every round.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/donor-search/internal/domain"
)

// GetDonationRequest fetches a donation request by key, or ErrNotFound.
func GetDonationRequest(ctx context.Context, db *gorm.DB, key domain.SearchKey) (*domain.DonationRequest, error) {
	var req domain.DonationRequest
	err := db.WithContext(ctx).
		Where("seeker_id = ? AND request_id = ? AND request_created_at = ?", key.SeekerID, key.RequestID, key.CreatedAt).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpsertDonationRequest inserts req or replaces the stored copy.
func UpsertDonationRequest(ctx context.Context, db *gorm.DB, req *domain.DonationRequest) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(req).Error
}

// CountAcceptedDonors returns how many donors accepted the request.
func CountAcceptedDonors(ctx context.Context, db *gorm.DB, seekerID, requestID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.AcceptedDonation{}).
		Where("seeker_id = ? AND request_id = ?", seekerID, requestID).
		Count(&n).Error
	return n, err
}

// CreateAcceptance records that donorID accepted the request. A repeated
// acceptance returns ErrDuplicate.
func CreateAcceptance(ctx context.Context, db *gorm.DB, seekerID, requestID, donorID string) error {
	a := &domain.AcceptedDonation{
		ID:        uuid.NewString(),
		SeekerID:  seekerID,
		RequestID: requestID,
		DonorID:   donorID,
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
