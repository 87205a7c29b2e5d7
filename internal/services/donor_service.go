// Package services – DonorService
//
// DonorService registers donor locations. Cached donor lists are not
// invalidated; a new or moved location becomes visible to searches once the
// cache entry for its cell expires.
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/geo"
	"github.com/tbourn/donor-search/internal/repo"
)

// DonorService writes donor locations.
type DonorService struct {
	DB *gorm.DB
}

// RegisterLocation inserts or replaces loc.
func (s *DonorService) RegisterLocation(ctx context.Context, loc *domain.DonorLocation) error {
	switch {
	case strings.TrimSpace(loc.DonorID) == "":
		return fmt.Errorf("%w: missing donor id", ErrInvalidLocation)
	case strings.TrimSpace(loc.LocationID) == "":
		return fmt.Errorf("%w: missing location id", ErrInvalidLocation)
	case strings.TrimSpace(loc.City) == "":
		return fmt.Errorf("%w: missing city", ErrInvalidLocation)
	case !bloodGroups[loc.BloodGroup]:
		return fmt.Errorf("%w: unknown blood group", ErrInvalidLocation)
	case !geo.Valid(loc.Geohash):
		return fmt.Errorf("%w: invalid geohash", ErrInvalidLocation)
	}
	loc.City = strings.ToLower(strings.TrimSpace(loc.City))
	return repo.UpsertDonorLocation(ctx, s.DB, loc)
}
