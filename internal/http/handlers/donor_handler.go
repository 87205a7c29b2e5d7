// Donor HTTP handlers.
//
//   - PUT /donors/{donorId}/locations/{locationId}   (register or move a location)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/services"
)

// PutLocationBody is the JSON payload of a donor location write.
type PutLocationBody struct {
	City       string `json:"city" binding:"required" example:"dhaka"`
	BloodGroup string `json:"blood_group" binding:"required" example:"A+"`
	Geohash    string `json:"geohash" binding:"required" example:"wh0r35qx"`
}

// PutDonorLocation godoc
// @ID          putDonorLocation
// @Summary     Register or move a donor location
// @Description Donors may keep several locations. Searches see a change once the donor cache entry for its cell expires.
// @Tags        Donors
// @Accept      json
// @Produce     json
//
// @Param       donorId     path  string  true  "Donor ID"     example(donor-9)
// @Param       locationId  path  string  true  "Location ID"  example(home)
// @Param       body        body  handlers.PutLocationBody  true  "Location"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /donors/{donorId}/locations/{locationId} [put]
func (h *Handlers) PutDonorLocation(c *gin.Context) {
	var body PutLocationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "city, blood_group and geohash required")
		return
	}
	loc := &domain.DonorLocation{
		LocationID: c.Param("locationId"),
		DonorID:    c.Param("donorId"),
		City:       body.City,
		BloodGroup: body.BloodGroup,
		Geohash:    body.Geohash,
	}
	err := h.donorSvc.RegisterLocation(c.Request.Context(), loc)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrInvalidLocation):
		fail(c, http.StatusBadRequest, ErrCodeInvalidLocation, err.Error())
	default:
		failInternal(c, ErrCodeWriteFailed, err)
	}
}
