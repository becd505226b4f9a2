package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/http/middleware"
	"github.com/tbourn/go-codeshare-backend/internal/repo"
	"github.com/tbourn/go-codeshare-backend/internal/services"
)

var testNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func serr(k services.Kind, err error) error {
	return &services.Error{Kind: k, Op: "test", Err: err}
}

type fakeCodes struct {
	active    []domain.Code
	all       []domain.Code
	stats     repo.CodeStats
	byID      map[string]*domain.Code
	err       error
	published []services.Draft
	removed   []string
	purged    int64
	listCalls int
}

func (f *fakeCodes) ListActive(context.Context, time.Time) ([]domain.Code, error) {
	f.listCalls++
	return f.active, f.err
}
func (f *fakeCodes) Stats(context.Context, time.Time) (repo.CodeStats, error) { return f.stats, f.err }
func (f *fakeCodes) Get(_ context.Context, id string) (*domain.Code, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, serr(services.KindNotFound, services.ErrCodeNotFound)
}
func (f *fakeCodes) Publish(_ context.Context, sess *domain.Session, d services.Draft) (*domain.Code, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.published = append(f.published, d)
	return &domain.Code{ID: "new-1", Code: d.Code, Coin: d.Coin, MaxClaims: d.MaxClaims, ExpiryDate: d.ExpiryDate, PublishedBy: sess.UserID}, nil
}
func (f *fakeCodes) Claim(_ context.Context, _ *domain.Session, id string) (*domain.Code, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, serr(services.KindNotFound, services.ErrCodeNotFound)
	}
	c.ClaimedCount++
	return c, nil
}
func (f *fakeCodes) ListAll(context.Context, *domain.Session) ([]domain.Code, error) {
	return f.all, f.err
}
func (f *fakeCodes) AdminAdd(_ context.Context, _ *domain.Session, d services.Draft) (*domain.Code, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Code{ID: "adm-1", Code: d.Code, Coin: d.Coin, MaxClaims: d.MaxClaims, ExpiryDate: d.ExpiryDate}, nil
}
func (f *fakeCodes) Remove(_ context.Context, _ *domain.Session, id string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, id)
	return nil
}
func (f *fakeCodes) Purge(context.Context, *domain.Session, time.Time) (int64, error) {
	return f.purged, f.err
}

type fakeLedger struct {
	points int64
	reward int64
	err    error

	// drift is added to the balance during WatchAd, standing in for a
	// concurrent credit or debit on the same account.
	drift int64
}

func (f *fakeLedger) EnsureEntry(_ context.Context, userID string) (*domain.LedgerEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.LedgerEntry{ID: userID, Points: f.points}, nil
}
func (f *fakeLedger) WatchAd(context.Context, *domain.Session) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.points += f.reward + f.drift
	return f.points, nil
}
func (f *fakeLedger) Reward() int64 { return f.reward }

type fakeSessions struct {
	signedOut int
}

func (f *fakeSessions) SignUp(_ context.Context, email, password string) (*domain.Session, string, error) {
	if email == "taken@example.com" {
		return nil, "", serr(services.KindAuth, services.ErrEmailTaken)
	}
	if len(password) < 6 {
		return nil, "", serr(services.KindValidation, services.ErrWeakPassword)
	}
	return &domain.Session{ID: "s-new", UserID: "u-new", Email: email, ExpiresAt: testNow.Add(time.Hour)}, "tok-new", nil
}
func (f *fakeSessions) SignIn(_ context.Context, email, password string) (*domain.Session, string, error) {
	if password != "secret1" {
		return nil, "", serr(services.KindAuth, services.ErrInvalidCredentials)
	}
	return &domain.Session{ID: "s-1", UserID: "u-1", Email: email, ExpiresAt: testNow.Add(time.Hour)}, "tok-1", nil
}
func (f *fakeSessions) SignOut(context.Context, *domain.Session) error {
	f.signedOut++
	return nil
}

type fakeUpdates struct {
	items []domain.Update
	total int64
}

func (f *fakeUpdates) Post(_ context.Context, sess *domain.Session, text string) (*domain.Update, error) {
	if text == "" {
		return nil, serr(services.KindValidation, services.ErrEmptyText)
	}
	return &domain.Update{ID: "upd-1", Text: text, PostedBy: sess.UserID}, nil
}
func (f *fakeUpdates) List(context.Context, int, int) ([]domain.Update, int64, error) {
	return f.items, f.total, nil
}

type fakeIdem struct {
	recorded map[string]string
}

func (f *fakeIdem) Record(_ context.Context, userID, scope, key, resourceID string, _ int) error {
	if f.recorded == nil {
		f.recorded = map[string]string{}
	}
	f.recorded[userID+"|"+scope+"|"+key] = resourceID
	return nil
}

// tokenAuth maps bearer tokens onto fixed sessions.
type tokenAuth map[string]*domain.Session

func (a tokenAuth) Authenticate(_ context.Context, token string) (*domain.Session, error) {
	if s, ok := a[token]; ok {
		return s, nil
	}
	return nil, errors.New("unknown token")
}

var testTokens = tokenAuth{
	"user":  {ID: "s-1", UserID: "u-1", Email: "u1@example.com", ExpiresAt: testNow.Add(time.Hour)},
	"admin": {ID: "s-2", UserID: "admin-1", Email: "boss@example.com", IsAdmin: true, ExpiresAt: testNow.Add(time.Hour)},
	"brief": {ID: "s-3", UserID: "u-3", Email: "u3@example.com", ExpiresAt: testNow.Add(200 * time.Millisecond)},
}

type fixture struct {
	codes    *fakeCodes
	ledger   *fakeLedger
	sessions *fakeSessions
	updates  *fakeUpdates
	idem     *fakeIdem
	h        *Handlers
	r        *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		codes:    &fakeCodes{byID: map[string]*domain.Code{}},
		ledger:   &fakeLedger{reward: 5},
		sessions: &fakeSessions{},
		updates:  &fakeUpdates{},
		idem:     &fakeIdem{},
	}
	f.h = New(Deps{Codes: f.codes, Ledger: f.ledger, Sessions: f.sessions, Updates: f.updates, Idem: f.idem})
	f.h.now = func() time.Time { return testNow }

	lookup := func(_ context.Context, userID, scope, key string, _ time.Time) (string, bool, error) {
		id, ok := f.idem.recorded[userID+"|"+scope+"|"+key]
		return id, ok, nil
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Authenticate(testTokens), middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup))
	r.POST("/auth/signup", f.h.SignUp)
	r.POST("/auth/signin", f.h.SignIn)
	r.GET("/auth/session", f.h.Session)
	r.POST("/auth/signout", middleware.RequireSession(), f.h.SignOut)
	r.GET("/codes", f.h.ListCodes)
	r.POST("/codes", middleware.RequireSession(), f.h.PublishCode)
	r.POST("/codes/:id/claim", middleware.RequireSession(), f.h.ClaimCode)
	r.GET("/me/points", middleware.RequireSession(), f.h.Points)
	r.POST("/me/ads/watch", middleware.RequireSession(), f.h.WatchAd)
	r.GET("/updates", f.h.ListUpdates)
	admin := r.Group("/admin", middleware.RequireAdmin())
	admin.GET("/codes", f.h.AdminListCodes)
	admin.POST("/codes", f.h.AdminAddCode)
	admin.DELETE("/codes/:id", f.h.AdminDeleteCode)
	admin.POST("/codes/purge", f.h.AdminPurge)
	admin.POST("/updates", f.h.PostUpdate)
	f.r = r
	return f
}

func (f *fixture) do(method, path, token string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return v
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
}
