// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file serves donor-location lookups by geohash prefix.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/donor-search/internal/domain"
)

// QueryByGeohashPrefix returns up to limit locations in city with the given
// blood group whose geohash starts with prefix, ordered by location id and
// starting after cursor. next is the cursor of the following page, or ""
// when no rows remain.
func QueryByGeohashPrefix(ctx context.Context, db *gorm.DB, city, bloodGroup, prefix, cursor string, limit int) (out []domain.DonorLocation, next string, err error) {
	if limit < 1 {
		limit = 100
	}
	q := db.WithContext(ctx).
		Where("city = ? AND blood_group = ? AND geohash LIKE ?", city, bloodGroup, strings.ToLower(prefix)+"%")
	if cursor != "" {
		q = q.Where("location_id > ?", cursor)
	}
	if err = q.Order("location_id asc").Limit(limit + 1).Find(&out).Error; err != nil {
		return nil, "", err
	}
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].LocationID
	}
	return out, next, nil
}

// UpsertDonorLocation inserts loc or replaces the stored copy.
func UpsertDonorLocation(ctx context.Context, db *gorm.DB, loc *domain.DonorLocation) error {
	loc.Geohash = strings.ToLower(loc.Geohash)
	return db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(loc).Error
}
