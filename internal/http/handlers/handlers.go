// Package handlers provides the HTTP handlers of the ops and intake API.
//
// Handlers are transport-thin: they validate path and body input, call the
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/repo"
	"github.com/tbourn/donor-search/internal/utils"
)

//
// Service contracts (context-aware)
//

// SearchService reads donor-search progress.
type SearchService interface {
	// Get returns the search of key or services.ErrSearchNotFound.
	Get(ctx context.Context, key domain.SearchKey) (*domain.DonorSearchRecord, error)
	// ListPage returns a page of a seeker's searches and the total count.
	ListPage(ctx context.Context, seekerID string, page, pageSize int) ([]domain.DonorSearchRecord, int64, error)
}

// RequestService accepts donation-request writes and donor acceptances.
type RequestService interface {
	// Upsert stores the request and starts, refreshes, or reopens its search.
	Upsert(ctx context.Context, req *domain.DonationRequest) (created bool, err error)
	// Accept records that donorID accepted the request of key.
	Accept(ctx context.Context, key domain.SearchKey, donorID string) error
}

// DonorService registers donor locations.
type DonorService interface {
	RegisterLocation(ctx context.Context, loc *domain.DonorLocation) error
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// QueueStatter reports round-queue depth.
type QueueStatter interface {
	Stats(ctx context.Context) (repo.QueueStats, error)
}

//
// Handler wiring
//

// Handlers groups the API endpoints.
type Handlers struct {
	searchSvc  SearchService
	requestSvc RequestService
	donorSvc   DonorService
	db         Pinger
	queue      QueueStatter
}

// New constructs Handlers bound to the given services and probes.
func New(searchSvc SearchService, requestSvc RequestService, donorSvc DonorService, db Pinger, queue QueueStatter) *Handlers {
	return &Handlers{
		searchSvc:  searchSvc,
		requestSvc: requestSvc,
		donorSvc:   donorSvc,
		db:         db,
		queue:      queue,
	}
}

//
// Helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// searchKey reads :seekerId, :requestId and :createdAt (unix seconds).
func searchKey(c *gin.Context) (domain.SearchKey, bool) {
	key := domain.SearchKey{
		SeekerID:  strings.TrimSpace(c.Param("seekerId")),
		RequestID: strings.TrimSpace(c.Param("requestId")),
	}
	ts, ok := utils.ParseUnixSeconds(c.Param("createdAt"))
	if !ok || key.SeekerID == "" || key.RequestID == "" {
		return domain.SearchKey{}, false
	}
	key.CreatedAt = ts
	return key, true
}
