// Package services – SearchService
//
// SearchService exposes read-only views of donor searches: a single record
// with its notified-donor ledger, and a seeker's records page by page.
package services

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/repo"
)

// SearchService reads donor-search records.
type SearchService struct {
	DB *gorm.DB
}

// NotifiedDonor is one ledger entry of a search.
type NotifiedDonor struct {
	DonorID    string  `json:"donor_id"`
	LocationID string  `json:"location_id"`
	Distance   float64 `json:"distance_km"`
}

// Get returns the search record of key, or ErrSearchNotFound.
func (s *SearchService) Get(ctx context.Context, key domain.SearchKey) (*domain.DonorSearchRecord, error) {
	rec, err := repo.GetSearchRecord(ctx, s.DB, key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSearchNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListPage returns one page of a seeker's searches, newest request first,
// together with the seeker's total number of searches. page is 1-based.
func (s *SearchService) ListPage(ctx context.Context, seekerID string, page, pageSize int) ([]domain.DonorSearchRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	items, err := repo.ListSearchRecords(ctx, s.DB, seekerID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.CountSearchRecords(ctx, s.DB, seekerID)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// NotifiedDonors flattens the ledger of rec, nearest donor first.
func NotifiedDonors(rec *domain.DonorSearchRecord) []NotifiedDonor {
	ledger := rec.Notified()
	out := make([]NotifiedDonor, 0, len(ledger))
	for id, info := range ledger {
		out = append(out, NotifiedDonor{DonorID: id, LocationID: info.LocationID, Distance: info.Distance})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].DonorID < out[j].DonorID
	})
	return out
}
