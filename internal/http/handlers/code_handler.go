package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/http/middleware"
	"github.com/tbourn/go-codeshare-backend/internal/services"
)

// CodeDraftRequest is the payload for publishing or adding a code.
type CodeDraftRequest struct {
	Code       string `json:"code" example:"BNB-GIFT-7QX2"`
	Coin       string `json:"coin" example:"BNB"`
	MaxClaims  int    `json:"max_claims" example:"10"`
	ExpiryDate string `json:"expiry_date" example:"2025-12-31"`
}

func (r CodeDraftRequest) draft() services.Draft {
	return services.Draft{Code: r.Code, Coin: r.Coin, MaxClaims: r.MaxClaims, ExpiryDate: r.ExpiryDate}
}

// CodeView is a code as rendered to clients.
type CodeView struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Masked       bool      `json:"masked"`
	Coin         string    `json:"coin"`
	MaxClaims    int       `json:"max_claims"`
	ClaimedCount int       `json:"claimed_count"`
	Remaining    int       `json:"remaining"`
	FullyClaimed bool      `json:"fully_claimed"`
	ExpiryDate   string    `json:"expiry_date"`
	PublishedBy  string    `json:"published_by"`
	PublishedAt  time.Time `json:"published_at"`
}

func codeView(c domain.Code, masked bool) CodeView {
	v := CodeView{
		ID:           c.ID,
		Code:         c.Code,
		Coin:         c.Coin,
		MaxClaims:    c.MaxClaims,
		ClaimedCount: c.ClaimedCount,
		Remaining:    c.Remaining(),
		FullyClaimed: c.IsFullyClaimed(),
		ExpiryDate:   c.ExpiryDate,
		PublishedBy:  c.PublishedBy,
		PublishedAt:  c.PublishedAt,
	}
	if masked {
		v.Code = maskCode(c.Code)
		v.Masked = true
	}
	return v
}

func codeViews(cs []domain.Code, masked bool) []CodeView {
	out := make([]CodeView, 0, len(cs))
	for _, c := range cs {
		out = append(out, codeView(c, masked))
	}
	return out
}

// CodeStatsView summarizes the active listing.
type CodeStatsView struct {
	Available     int64      `json:"available"`
	TotalClaims   int64      `json:"total_claims"`
	LastPublished *time.Time `json:"last_published,omitempty"`
}

// ListCodesResponse is the active listing with its summary.
type ListCodesResponse struct {
	Codes []CodeView    `json:"codes"`
	Stats CodeStatsView `json:"stats"`
}

// ClaimResponse returns the unmasked code to copy.
type ClaimResponse struct {
	Code    CodeView `json:"code"`
	Message string   `json:"message"`
}

// ListCodes godoc
// @ID          listCodes
// @Summary     List active codes
// @Description Codes whose expiry day has not passed, newest first. Code strings are masked for anonymous callers. Supports a weak ETag via If-None-Match.
// @Tags        Codes
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListCodesResponse
// @Header      200  {string}  ETag  "Weak ETag for the current listing"
// @Success     304  {string}  string  "Not Modified"
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /codes [get]
func (h *Handlers) ListCodes(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.now()
	anonymous := middleware.SessionFrom(c) == nil

	st, err := h.codes.Stats(ctx, now)
	if err != nil {
		failErr(c, err)
		return
	}
	var ts int64
	if st.LastPublished != nil {
		ts = st.LastPublished.Unix()
	}
	etag := fmt.Sprintf(`W/"codes:%s:%d:%d:%d:%t"`, domain.Today(now), st.Available, st.TotalClaims, ts, anonymous)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	items, err := h.codes.ListActive(ctx, now)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListCodesResponse{
		Codes: codeViews(items, anonymous),
		Stats: CodeStatsView{Available: st.Available, TotalClaims: st.TotalClaims, LastPublished: st.LastPublished},
	})
}

// PublishCode godoc
// @ID          publishCode
// @Summary     Publish a code
// @Description Spends the publishing cost from the caller's points and lists the code. Retrying with the same Idempotency-Key returns the original code without a second debit.
// @Tags        Codes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false  "Retry key"
// @Param       body  body      handlers.CodeDraftRequest  true  "Code"
// @Success     201   {object}  handlers.CodeView
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Failure     409   {object}  handlers.ErrorResponse  "insufficient_points"
// @Router      /codes [post]
func (h *Handlers) PublishCode(c *gin.Context) {
	ctx := c.Request.Context()
	sess := middleware.SessionFrom(c)

	if id, replay := middleware.ReplayedResource(c); replay {
		code, err := h.codes.Get(ctx, id)
		if err != nil {
			failErr(c, err)
			return
		}
		c.Header("Idempotent-Replayed", "true")
		ok(c, http.StatusCreated, codeView(*code, false))
		return
	}

	var req CodeDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	code, err := h.codes.Publish(ctx, sess, req.draft())
	if err != nil {
		failErr(c, err)
		return
	}
	if key, has := middleware.GetIdempotencyKey(c); has && h.idem != nil {
		if err := h.idem.Record(ctx, sess.UserID, middleware.IdempotencyScope(c), key, code.ID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("code_id", code.ID).Msg("record idempotency key")
		}
	}
	ok(c, http.StatusCreated, codeView(*code, false))
}

// ClaimCode godoc
// @ID          claimCode
// @Summary     Claim a code
// @Description Records one redemption and returns the code string to copy.
// @Tags        Codes
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Code ID"
// @Success     200  {object}  handlers.ClaimResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "fully_claimed"
// @Router      /codes/{id}/claim [post]
func (h *Handlers) ClaimCode(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code id required")
		return
	}
	code, err := h.codes.Claim(c.Request.Context(), middleware.SessionFrom(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ClaimResponse{
		Code:    codeView(*code, false),
		Message: "Code copied to clipboard! Paste it in Binance app.",
	})
}
