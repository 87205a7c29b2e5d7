// Request intake HTTP handlers.
//
//   - PUT  /seekers/{seekerId}/requests/{requestId}/{createdAt}              (create or update)
//   - POST /seekers/{seekerId}/requests/{requestId}/{createdAt}/acceptances  (donor accepts)
//
// A PUT behaves like a request-store change event: the first write starts
// a search, later writes refresh it, and moving a closed request back to
// PENDING reopens it.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/services"
)

// PutRequestBody is the JSON payload of a donation request write.
type PutRequestBody struct {
	Status              string    `json:"status" example:"PENDING"`
	BloodQuantity       int       `json:"blood_quantity" binding:"required,min=1" example:"2"`
	RequestedBloodGroup string    `json:"requested_blood_group" binding:"required" example:"O-"`
	UrgencyLevel        string    `json:"urgency_level" binding:"required" example:"URGENT"`
	DonationDateTime    time.Time `json:"donation_date_time" binding:"required" example:"2026-05-01T09:00:00Z"`
	City                string    `json:"city" binding:"required" example:"dhaka"`
	Geohash             string    `json:"geohash" binding:"required" example:"wh0r35qr"`
	Location            string    `json:"location" example:"Dhaka Medical College"`
	ContactNumber       string    `json:"contact_number" example:"+8801700000000"`
	PatientName         string    `json:"patient_name" example:"R. Karim"`
	ShortDescription    string    `json:"short_description" example:"Surgery on Friday"`
}

// PutRequestResponse reports whether the write created the request.
type PutRequestResponse struct {
	Created bool `json:"created"`
}

// AcceptRequestBody is the JSON payload of a donor acceptance.
type AcceptRequestBody struct {
	DonorID string `json:"donor_id" binding:"required" example:"donor-9"`
}

// PutRequest godoc
// @ID          putRequest
// @Summary     Create or update a donation request
// @Description Stores the request and starts, refreshes, or reopens its donor search.
// @Tags        Requests
// @Accept      json
// @Produce     json
//
// @Param       seekerId   path  string  true  "Seeker ID"                       example(seeker-42)
// @Param       requestId  path  string  true  "Request ID"                      example(req-7)
// @Param       createdAt  path  int     true  "Request creation time (unix s)"  example(1767225600)
// @Param       body       body  handlers.PutRequestBody  true  "Donation request"
//
// @Success     201  {object} handlers.PutRequestResponse "Created"
// @Success     200  {object} handlers.PutRequestResponse "Updated"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /seekers/{seekerId}/requests/{requestId}/{createdAt} [put]
func (h *Handlers) PutRequest(c *gin.Context) {
	key, valid := searchKey(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "seeker id, request id and unix created-at required")
		return
	}
	var body PutRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	req := &domain.DonationRequest{
		SeekerID:            key.SeekerID,
		RequestID:           key.RequestID,
		RequestCreatedAt:    key.CreatedAt,
		Status:              domain.RequestStatus(body.Status),
		BloodQuantity:       body.BloodQuantity,
		RequestedBloodGroup: body.RequestedBloodGroup,
		UrgencyLevel:        domain.UrgencyLevel(body.UrgencyLevel),
		DonationDateTime:    body.DonationDateTime.UTC(),
		City:                body.City,
		Geohash:             body.Geohash,
		Location:            body.Location,
		ContactNumber:       body.ContactNumber,
		PatientName:         body.PatientName,
		ShortDescription:    body.ShortDescription,
	}
	created, err := h.requestSvc.Upsert(c.Request.Context(), req)
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		fail(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	case err != nil:
		failInternal(c, ErrCodeWriteFailed, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, PutRequestResponse{Created: created})
}

// AcceptRequest godoc
// @ID          acceptRequest
// @Summary     Record a donor acceptance
// @Description Counts the donor toward the requested blood quantity. Once enough donors accept, the search completes.
// @Tags        Requests
// @Accept      json
// @Produce     json
//
// @Param       seekerId   path  string  true  "Seeker ID"                       example(seeker-42)
// @Param       requestId  path  string  true  "Request ID"                      example(req-7)
// @Param       createdAt  path  int     true  "Request creation time (unix s)"  example(1767225600)
// @Param       body       body  handlers.AcceptRequestBody  true  "Accepting donor"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Request not found"
// @Failure     409  {object} handlers.ErrorResponse "Already accepted"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /seekers/{seekerId}/requests/{requestId}/{createdAt}/acceptances [post]
func (h *Handlers) AcceptRequest(c *gin.Context) {
	key, valid := searchKey(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "seeker id, request id and unix created-at required")
		return
	}
	var body AcceptRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "donor_id required")
		return
	}

	err := h.requestSvc.Accept(c.Request.Context(), key, body.DonorID)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrRequestNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "donation request not found")
	case errors.Is(err, services.ErrAlreadyAccepted):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidRequest):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		failInternal(c, ErrCodeWriteFailed, err)
	}
}
