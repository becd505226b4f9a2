package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct {
	userID, scope, key string
}

func idemEngine(opts IdempotencyOptions, lookup IdempotencyLookup, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(userIDKey, userID)
		}
		c.Next()
	})
	r.Use(IdempotencyValidator(opts, lookup))
	r.POST("/codes", func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		res, replay := ReplayedResource(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "resource": res, "replay": replay})
	})
	return r
}

func postCodes(r *gin.Engine, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/codes", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyValidator_NoHeader_NoLookup(t *testing.T) {
	called := false
	r := idemEngine(IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (string, bool, error) {
		called = true
		return "", false, nil
	}, "u1")

	w := postCodes(r, "")
	if w.Code != http.StatusOK || called {
		t.Fatalf("status=%d called=%v", w.Code, called)
	}
}

func TestIdempotencyValidator_RejectsBadKeys(t *testing.T) {
	r := idemEngine(IdempotencyOptions{MaxLen: 5, Pattern: regexp.MustCompile(`^[a-z]+$`)}, nil, "u1")

	for _, key := range []string{"toolong", "ABC"} {
		w := postCodes(r, key)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: status = %d; want 400", key, w.Code)
		}
		var body map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["code"] != "bad_request" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	}
}

func TestIdempotencyValidator_ScopedLookup(t *testing.T) {
	var calls []lookupCall
	r := idemEngine(IdempotencyOptions{}, func(_ context.Context, uid, scope, key string, _ time.Time) (string, bool, error) {
		calls = append(calls, lookupCall{uid, scope, key})
		if key == "seen" {
			return "code-1", true, nil
		}
		return "", false, nil
	}, "u1")

	w := postCodes(r, "fresh")
	if !strings.Contains(w.Body.String(), `"replay":false`) {
		t.Fatalf("miss should not replay: %s", w.Body.String())
	}
	w = postCodes(r, "seen")
	if !strings.Contains(w.Body.String(), `"resource":"code-1"`) || !strings.Contains(w.Body.String(), `"replay":true`) {
		t.Fatalf("hit should expose resource: %s", w.Body.String())
	}
	if len(calls) != 2 || calls[0] != (lookupCall{"u1", "POST /codes", "fresh"}) {
		t.Fatalf("unexpected lookups: %+v", calls)
	}
}

func TestIdempotencyValidator_AnonymousAndLookupErrors(t *testing.T) {
	called := false
	r := idemEngine(IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (string, bool, error) {
		called = true
		return "", false, nil
	}, "")
	w := postCodes(r, "k1")
	if called || !strings.Contains(w.Body.String(), `"key":"k1"`) {
		t.Fatalf("anonymous requests keep the key but skip lookup: called=%v body=%s", called, w.Body.String())
	}

	r = idemEngine(IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (string, bool, error) {
		return "x", true, errors.New("db down")
	}, "u1")
	w = postCodes(r, "k1")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"replay":false`) {
		t.Fatalf("lookup errors are a miss: %d %s", w.Code, w.Body.String())
	}
}

func TestIdempotencyScope_FallsBackToURLPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodDelete, "/raw/path", nil)
	if got := IdempotencyScope(c); got != "DELETE /raw/path" {
		t.Fatalf("scope = %q", got)
	}
}
