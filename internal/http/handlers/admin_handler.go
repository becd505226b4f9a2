package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-codeshare-backend/internal/http/middleware"
)

// PurgeResponse reports how many expired codes were deleted.
type PurgeResponse struct {
	Deleted int64 `json:"deleted" example:"3"`
}

// AdminListCodes godoc
// @ID          adminListCodes
// @Summary     List every code
// @Description Includes expired codes.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   handlers.CodeView
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /admin/codes [get]
func (h *Handlers) AdminListCodes(c *gin.Context) {
	items, err := h.codes.ListAll(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, codeViews(items, false))
}

// AdminAddCode godoc
// @ID          adminAddCode
// @Summary     Add a code without spending points
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CodeDraftRequest  true  "Code"
// @Success     201   {object}  handlers.CodeView
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Router      /admin/codes [post]
func (h *Handlers) AdminAddCode(c *gin.Context) {
	var req CodeDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	code, err := h.codes.AdminAdd(c.Request.Context(), middleware.SessionFrom(c), req.draft())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, codeView(*code, false))
}

// AdminDeleteCode godoc
// @ID          adminDeleteCode
// @Summary     Delete a code
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Code ID"
// @Success     200  {object}  handlers.MessageResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /admin/codes/{id} [delete]
func (h *Handlers) AdminDeleteCode(c *gin.Context) {
	if err := h.codes.Remove(c.Request.Context(), middleware.SessionFrom(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: "Code deleted successfully!"})
}

// AdminPurge godoc
// @ID          adminPurge
// @Summary     Delete expired codes now
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.PurgeResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /admin/codes/purge [post]
func (h *Handlers) AdminPurge(c *gin.Context) {
	n, err := h.codes.Purge(c.Request.Context(), middleware.SessionFrom(c), h.now())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, PurgeResponse{Deleted: n})
}
