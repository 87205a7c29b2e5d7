// Probe handlers.
//
//   - GET /health   liveness, always 200 while the process serves HTTP
//   - GET /ready    readiness, 200 when the database answers and the round
//     queue can be read; the body carries queue depth
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/donor-search/internal/repo"
)

const readyTimeout = 2 * time.Second

// ReadyResponse is the readiness report.
type ReadyResponse struct {
	Status string          `json:"status" example:"ready"`
	Queue  repo.QueueStats `json:"queue"`
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Ops
// @Produce     json
// @Success     200  {object} map[string]string
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @ID          ready
// @Summary     Readiness probe
// @Description Checks the database and reports round-queue depth.
// @Tags        Ops
// @Produce     json
// @Success     200  {object} handlers.ReadyResponse
// @Failure     503  {object} handlers.ErrorResponse "Dependency unavailable"
// @Router      /ready [get]
func (h *Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "database unavailable")
		return
	}
	stats, err := h.queue.Stats(ctx)
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "round queue unavailable")
		return
	}
	ok(c, http.StatusOK, ReadyResponse{Status: "ready", Queue: stats})
}
