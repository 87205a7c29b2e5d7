package search

import (
	"context"
	"time"

	"github.com/tbourn/donor-search/internal/domain"
)

// RecordStore reads requests and acceptances and persists search records.
// Absent rows are returned as (nil, nil).
//
// SaveSearchRecord never turns a stored COMPLETED record back to PENDING; it
// leaves rec.Status COMPLETED instead. ReopenSearchRecord is the only way
// back, and reports whether the record was reopened.
type RecordStore interface {
	GetSearchRecord(ctx context.Context, key domain.SearchKey) (*domain.DonorSearchRecord, error)
	SaveSearchRecord(ctx context.Context, rec *domain.DonorSearchRecord) error
	ReopenSearchRecord(ctx context.Context, rec *domain.DonorSearchRecord) (bool, error)
	GetDonationRequest(ctx context.Context, key domain.SearchKey) (*domain.DonationRequest, error)
	CountAcceptedDonors(ctx context.Context, key domain.SearchKey) (int, error)
}

// DonorFinder returns the donors registered under a geohash cell.
type DonorFinder interface {
	DonorsFor(ctx context.Context, prefix, city, bloodGroup string) ([]domain.DonorRef, error)
}

// Queue is the round queue.
type Queue interface {
	Enqueue(ctx context.Context, body []byte, delay time.Duration) (string, error)
	ExtendVisibility(ctx context.Context, handle string, d time.Duration) error
}

// Dispatcher delivers one donor notification.
type Dispatcher interface {
	Send(ctx context.Context, n domain.DonorNotification) error
}
