// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides notification receipts: one row per
// (seeker, request, donor) marking that the donor was sent a notification.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/donor-search/internal/domain"
)

// ErrDuplicate indicates that a unique row already exists, e.g. a receipt
// for the same (seeker_id, request_id, donor_id) tuple.
var ErrDuplicate = errors.New("duplicate")

// CreateReceipt inserts a receipt and returns ErrDuplicate on unique violation.
func CreateReceipt(ctx context.Context, db *gorm.DB, seekerID, requestID, donorID string) (*domain.NotificationReceipt, error) {
	rec := &domain.NotificationReceipt{
		ID:        uuid.NewString(),
		SeekerID:  seekerID,
		RequestID: requestID,
		DonorID:   donorID,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// DeleteReceipt removes a receipt so the donor can be notified again.
func DeleteReceipt(ctx context.Context, db *gorm.DB, seekerID, requestID, donorID string) error {
	return db.WithContext(ctx).
		Where("seeker_id = ? AND request_id = ? AND donor_id = ?", seekerID, requestID, donorID).
		Delete(&domain.NotificationReceipt{}).Error
}

// CountReceipts returns how many donors were sent a notification for the request.
func CountReceipts(ctx context.Context, db *gorm.DB, seekerID, requestID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.NotificationReceipt{}).
		Where("seeker_id = ? AND request_id = ?", seekerID, requestID).
		Count(&n).Error
	return n, err
}

func isUniqueViolation(err error) bool {
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
