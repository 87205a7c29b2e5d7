// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file persists DonorSearchRecord rows.
//
// The notified-donor ledger is append-only: SaveSearchRecord merges the
// caller's ledger with the stored one inside a transaction, so two rounds of
// the same request racing to save can never drop each other's entries.
// Status writes are conditional on the status read in that transaction, and
// COMPLETED only goes back to PENDING through ReopenSearchRecord.
package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/donor-search/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the search layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetSearchRecord fetches the search record of a request, or ErrNotFound.
func GetSearchRecord(ctx context.Context, db *gorm.DB, key domain.SearchKey) (*domain.DonorSearchRecord, error) {
	var rec domain.DonorSearchRecord
	err := db.WithContext(ctx).
		Where("seeker_id = ? AND request_id = ? AND request_created_at = ?", key.SeekerID, key.RequestID, key.CreatedAt).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ErrStaleRecord is returned when a search record kept changing under
// concurrent writers for every save attempt.
var ErrStaleRecord = errors.New("search record changed concurrently")

const saveAttempts = 3

// SaveSearchRecord inserts or updates rec. The stored ledger is merged into
// rec's ledger first (existing entries win), and rec is updated in place to
// the merged result.
//
// COMPLETED is terminal: when the stored record is COMPLETED, rec is saved
// (and left) COMPLETED whatever status the caller loaded earlier. Only
// ReopenSearchRecord moves a record back to PENDING.
func SaveSearchRecord(ctx context.Context, db *gorm.DB, rec *domain.DonorSearchRecord) error {
	_, err := saveSearchRecord(ctx, db, rec, false)
	return err
}

// ReopenSearchRecord saves rec like SaveSearchRecord and, when the stored
// record is COMPLETED, flips it back to PENDING. It reports whether that
// transition happened; a record that is still PENDING is only refreshed.
func ReopenSearchRecord(ctx context.Context, db *gorm.DB, rec *domain.DonorSearchRecord) (bool, error) {
	return saveSearchRecord(ctx, db, rec, true)
}

// CompleteSearchRecord marks the record of key COMPLETED if it is PENDING and
// reports whether it changed. A missing record is not an error.
func CompleteSearchRecord(ctx context.Context, db *gorm.DB, key domain.SearchKey) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.DonorSearchRecord{}).
		Where("seeker_id = ? AND request_id = ? AND request_created_at = ? AND status = ?",
			key.SeekerID, key.RequestID, key.CreatedAt, domain.SearchPending).
		Update("status", domain.SearchCompleted)
	return res.RowsAffected > 0, res.Error
}

// saveSearchRecord writes rec conditionally on the status it read, retrying
// when another writer changed the row in between.
func saveSearchRecord(ctx context.Context, db *gorm.DB, rec *domain.DonorSearchRecord, reopen bool) (bool, error) {
	want := rec.Status
	for attempt := 0; attempt < saveAttempts; attempt++ {
		rec.Status = want
		var reopened bool
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			stored, err := GetSearchRecord(ctx, tx, rec.Key())
			switch {
			case errors.Is(err, ErrNotFound):
				rec.SetNotified(rec.Notified())
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
				if res.Error == nil && res.RowsAffected == 0 {
					return ErrStaleRecord
				}
				return res.Error
			case err != nil:
				return err
			}

			rec.SetNotified(stored.Notified().Merge(rec.Notified()))
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = stored.CreatedAt
			}
			switch {
			case reopen && stored.Status == domain.SearchCompleted:
				rec.Status = domain.SearchPending
				reopened = true
			case reopen, stored.Status == domain.SearchCompleted:
				rec.Status = stored.Status
			}

			res := tx.Model(rec).
				Where("status = ?", stored.Status).
				Select("*").
				Updates(rec)
			if res.Error == nil && res.RowsAffected == 0 {
				return ErrStaleRecord
			}
			return res.Error
		})
		if errors.Is(err, ErrStaleRecord) {
			continue
		}
		return reopened, err
	}
	return false, fmt.Errorf("save search record %s/%s: %w", rec.SeekerID, rec.RequestID, ErrStaleRecord)
}

// ListSearchRecords returns a page of a seeker's records, newest request
// first.
func ListSearchRecords(ctx context.Context, db *gorm.DB, seekerID string, offset, limit int) ([]domain.DonorSearchRecord, error) {
	var out []domain.DonorSearchRecord
	err := db.WithContext(ctx).
		Where("seeker_id = ?", seekerID).
		Order("request_created_at desc").
		Order("request_id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountSearchRecords returns how many records a seeker has.
func CountSearchRecords(ctx context.Context, db *gorm.DB, seekerID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.DonorSearchRecord{}).
		Where("seeker_id = ?", seekerID).
		Count(&n).Error
	return n, err
}
