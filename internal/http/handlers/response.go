// Package handlers provides the HTTP handlers of the ops and intake API.
//
// Every failure is written as one flat envelope:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "search not found"
//	}
//
// Server-side failures never echo the underlying error: the cause is logged
// with the request-scoped logger and the client gets a fixed message.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/donor-search/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID, for joining client reports with server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable code, see errors.go
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"search not found"`
}

// fail aborts with status and the envelope built from code and msg.
func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// failInternal logs err and aborts with a 500 that does not expose it.
func failInternal(c *gin.Context, code string, err error) {
	lg := middleware.LoggerFrom(c)
	lg.Error().Err(err).Str("code", code).Msg("api error")
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, code, http.StatusText(http.StatusInternalServerError))
}

// Fail lets the router write the same envelope for NoRoute/NoMethod.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
