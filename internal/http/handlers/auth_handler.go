package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/http/middleware"
)

// CredentialsRequest is the sign-up / sign-in payload.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"correct-horse"`
}

// SessionView describes the caller's session state.
type SessionView struct {
	Authenticated bool       `json:"authenticated"`
	UserID        string     `json:"user_id,omitempty"`
	Email         string     `json:"email,omitempty"`
	IsAdmin       bool       `json:"is_admin"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// AuthResponse is returned by sign-up and sign-in.
type AuthResponse struct {
	Token   string      `json:"token"`
	Session SessionView `json:"session"`
}

func sessionView(s *domain.Session) SessionView {
	if s == nil {
		return SessionView{}
	}
	exp := s.ExpiresAt
	return SessionView{
		Authenticated: true,
		UserID:        s.UserID,
		Email:         s.Email,
		IsAdmin:       s.IsAdmin,
		ExpiresAt:     &exp,
	}
}

// SignUp godoc
// @ID          signUp
// @Summary     Register and sign in
// @Description Creates an account and returns a bearer token for the new session.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CredentialsRequest  true  "Credentials"
// @Success     201   {object}  handlers.AuthResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid e-mail or weak password"
// @Failure     409   {object}  handlers.ErrorResponse  "E-mail already registered"
// @Router      /auth/signup [post]
func (h *Handlers) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}
	sess, token, err := h.sessions.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, AuthResponse{Token: token, Session: sessionView(sess)})
}

// SignIn godoc
// @ID          signIn
// @Summary     Sign in
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CredentialsRequest  true  "Credentials"
// @Success     200   {object}  handlers.AuthResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid e-mail or password"
// @Router      /auth/signin [post]
func (h *Handlers) SignIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}
	sess, token, err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, AuthResponse{Token: token, Session: sessionView(sess)})
}

// SignOut godoc
// @ID          signOut
// @Summary     Sign out
// @Description Ends the current session; its token stops working immediately.
// @Tags        Auth
// @Security    BearerAuth
// @Success     204
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /auth/signout [post]
func (h *Handlers) SignOut(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context(), middleware.SessionFrom(c)); err != nil {
		failErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session godoc
// @ID          getSession
// @Summary     Current session state
// @Description Reports whether the bearer token (if any) is signed in and whether it is an administrator.
// @Tags        Auth
// @Produce     json
// @Success     200  {object}  handlers.SessionView
// @Router      /auth/session [get]
func (h *Handlers) Session(c *gin.Context) {
	ok(c, http.StatusOK, sessionView(middleware.SessionFrom(c)))
}
