package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/http/middleware"
	"github.com/tbourn/go-codeshare-backend/internal/utils"
)

// PostUpdateRequest is an announcement.
type PostUpdateRequest struct {
	Text string `json:"text" binding:"required" example:"Fresh BNB codes every Friday."`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListUpdatesResponse is one page of announcements.
type ListUpdatesResponse struct {
	Updates    []domain.Update `json:"updates"`
	Pagination Pagination      `json:"pagination"`
}

func pagination(page, pageSize int, total int64) Pagination {
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: pages, HasNext: page < pages}
}

// ListUpdates godoc
// @ID          listUpdates
// @Summary     List announcements
// @Tags        Updates
// @Produce     json
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListUpdatesResponse
// @Router      /updates [get]
func (h *Handlers) ListUpdates(c *gin.Context) {
	page, pageSize := utils.NormalizePage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)
	items, total, err := h.updates.List(c.Request.Context(), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListUpdatesResponse{Updates: items, Pagination: pagination(page, pageSize, total)})
}

// PostUpdate godoc
// @ID          postUpdate
// @Summary     Post an announcement
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.PostUpdateRequest  true  "Announcement"
// @Success     201   {object}  domain.Update
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Router      /admin/updates [post]
func (h *Handlers) PostUpdate(c *gin.Context) {
	var req PostUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
		return
	}
	u, err := h.updates.Post(c.Request.Context(), middleware.SessionFrom(c), req.Text)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}
