// Search HTTP handlers.
//
// Read-only views of donor searches:
//   - GET /seekers/{seekerId}/searches                                (list, paginated)
//   - GET /seekers/{seekerId}/searches/{requestId}/{createdAt}        (one search with its ledger)
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/services"
)

//
// DTOs
//

// SearchView is the public shape of a donor search.
type SearchView struct {
	SeekerID            string                   `json:"seeker_id" example:"seeker-42"`
	RequestID           string                   `json:"request_id" example:"req-7"`
	CreatedAt           int64                    `json:"created_at" example:"1767225600"`
	Status              domain.SearchStatus      `json:"status" example:"PENDING"`
	BloodQuantity       int                      `json:"blood_quantity" example:"2"`
	RequestedBloodGroup string                   `json:"requested_blood_group" example:"O-"`
	UrgencyLevel        domain.UrgencyLevel      `json:"urgency_level" example:"URGENT"`
	DonationDateTime    time.Time                `json:"donation_date_time"`
	City                string                   `json:"city" example:"dhaka"`
	Geohash             string                   `json:"geohash" example:"wh0r35qr"`
	NotifiedCount       int                      `json:"notified_count" example:"12"`
	NotifiedDonors      []services.NotifiedDonor `json:"notified_donors,omitempty"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

// ListSearchesResponse wraps a page of searches and pagination information.
type ListSearchesResponse struct {
	Searches   []SearchView `json:"searches"`
	Pagination Pagination   `json:"pagination"`
}

func toSearchView(rec *domain.DonorSearchRecord, withLedger bool) SearchView {
	v := SearchView{
		SeekerID:            rec.SeekerID,
		RequestID:           rec.RequestID,
		CreatedAt:           rec.RequestCreatedAt,
		Status:              rec.Status,
		BloodQuantity:       rec.BloodQuantity,
		RequestedBloodGroup: rec.RequestedBloodGroup,
		UrgencyLevel:        rec.UrgencyLevel,
		DonationDateTime:    rec.DonationDateTime,
		City:                rec.City,
		Geohash:             rec.Geohash,
		NotifiedCount:       len(rec.NotifiedEligibleDonors.Data()),
		UpdatedAt:           rec.UpdatedAt,
	}
	if withLedger {
		v.NotifiedDonors = services.NotifiedDonors(rec)
	}
	return v
}

//
// Handlers
//

// ListSearches godoc
// @ID          listSearches
// @Summary     List a seeker's donor searches (paginated)
// @Description Returns the seeker's searches, newest request first, without the notified-donor ledger.
// @Tags        Searches
// @Produce     json
//
// @Param       seekerId   path    string  true   "Seeker ID"       example(seeker-42)
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSearchesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /seekers/{seekerId}/searches [get]
func (h *Handlers) ListSearches(c *gin.Context) {
	seekerID := strings.TrimSpace(c.Param("seekerId"))
	if seekerID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "seeker id required")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.searchSvc.ListPage(c.Request.Context(), seekerID, page, pageSize)
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}

	views := make([]SearchView, 0, len(items))
	for i := range items {
		views = append(views, toSearchView(&items[i], false))
	}
	ok(c, http.StatusOK, ListSearchesResponse{
		Searches:   views,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetSearch godoc
// @ID          getSearch
// @Summary     Get one donor search
// @Description Returns the search with its notified donors, nearest first.
// @Tags        Searches
// @Produce     json
//
// @Param       seekerId   path  string  true  "Seeker ID"                        example(seeker-42)
// @Param       requestId  path  string  true  "Request ID"                       example(req-7)
// @Param       createdAt  path  int     true  "Request creation time (unix s)"   example(1767225600)
//
// @Success     200  {object} handlers.SearchView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Search not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /seekers/{seekerId}/searches/{requestId}/{createdAt} [get]
func (h *Handlers) GetSearch(c *gin.Context) {
	key, valid := searchKey(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "seeker id, request id and unix created-at required")
		return
	}
	rec, err := h.searchSvc.Get(c.Request.Context(), key)
	switch {
	case errors.Is(err, services.ErrSearchNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "search not found")
		return
	case err != nil:
		failInternal(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, toSearchView(rec, true))
}
