package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-codeshare-backend/internal/http/middleware"
)

// PointsResponse carries a balance.
type PointsResponse struct {
	Points  int64  `json:"points" example:"15"`
	Message string `json:"message,omitempty"`
}

// Points godoc
// @ID          getPoints
// @Summary     Current points balance
// @Description Returns the caller's balance, creating the ledger entry on first use.
// @Tags        Me
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.PointsResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /me/points [get]
func (h *Handlers) Points(c *gin.Context) {
	e, err := h.ledger.EnsureEntry(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, PointsResponse{Points: e.Points})
}

// WatchAd godoc
// @ID          watchAd
// @Summary     Watch an ad for points
// @Description Blocks for the ad duration, then credits the reward. Disconnecting early forfeits it.
// @Tags        Me
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.PointsResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /me/ads/watch [post]
func (h *Handlers) WatchAd(c *gin.Context) {
	points, err := h.ledger.WatchAd(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, PointsResponse{
		Points:  points,
		Message: fmt.Sprintf("+%d Points added! Watch more ads to earn more.", h.ledger.Reward()),
	})
}
