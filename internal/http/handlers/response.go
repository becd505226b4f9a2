package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-codeshare-backend/internal/http/middleware"
	"github.com/tbourn/go-codeshare-backend/internal/services"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"not_found"`
	// Human-readable message, safe to show to users
	Message string `json:"message" example:"code not found"`
}

// MessageResponse carries the user-facing confirmation of an operation.
type MessageResponse struct {
	Message string `json:"message" example:"Code deleted successfully!"`
}

// fail aborts with the envelope. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error onto status and code. The message comes from
// services.UserMessage so store failures never leak driver text; the cause
// is logged for 5xx.
func failErr(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(err).Msg("service failure")
	}
	msg := services.UserMessage(err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = "request cancelled"
	}
	fail(c, status, code, msg)
}

func statusFor(err error) (int, string) {
	switch services.KindOf(err) {
	case services.KindAuth:
		if errors.Is(err, services.ErrEmailTaken) {
			return http.StatusConflict, ErrCodeConflict
		}
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case services.KindValidation:
		return http.StatusBadRequest, ErrCodeBadRequest
	case services.KindPermissionDenied:
		return http.StatusForbidden, ErrCodeForbidden
	case services.KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case services.KindFullyClaimed:
		return http.StatusConflict, ErrCodeFullyClaimed
	case services.KindInsufficientPoints:
		return http.StatusConflict, ErrCodeInsufficientPoints
	case services.KindStoreUnavailable:
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
