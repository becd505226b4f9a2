package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
)

const (
	sessionKey = "session"
	userIDKey  = "userID"
)

// Authenticator resolves a bearer token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

// Authenticate resolves an optional bearer token. Requests without one
// continue anonymously; a token that does not resolve is rejected with 401
// so clients notice an expired session instead of silently losing identity.
// The events stream cannot set headers from browsers, so a "token" query
// parameter is accepted as well.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		sess, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil || sess == nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "session expired or invalid, sign in again")
			return
		}
		c.Set(sessionKey, sess)
		c.Set(userIDKey, sess.UserID)
		c.Next()
	}
}

// RequireSession rejects anonymous requests.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFrom(c) == nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "sign in required")
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous (401) and non-administrator (403) requests.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := SessionFrom(c)
		switch {
		case sess == nil:
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "sign in required")
			return
		case !sess.IsAdmin:
			abortJSON(c, http.StatusForbidden, "forbidden", "administrator only")
			return
		}
		c.Next()
	}
}

// SessionFrom returns the authenticated session, or nil.
func SessionFrom(c *gin.Context) *domain.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*domain.Session)
	return s
}

// UserID returns the authenticated user id, or "" when anonymous.
func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	return asString(v)
}

// IsAdmin reports whether the request carries an administrator session.
func IsAdmin(c *gin.Context) bool {
	s := SessionFrom(c)
	return s != nil && s.IsAdmin
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}
