// Package httpapi wires the Gin transport to the code registry, ledger,
// session and announcement services.
//
// Middleware order:
//  1. otelgin tracing
//  2. RequestID
//  3. RedactingLogger
//  4. Recovery
//  5. body size cap
//  6. Prometheus metrics
//  7. CORS and security headers
//  8. Authenticate (bearer token or ?token=)
//  9. Idempotency-Key validation and replay lookup
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-codeshare-backend/docs"
	"github.com/tbourn/go-codeshare-backend/internal/config"
	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/events"
	"github.com/tbourn/go-codeshare-backend/internal/http/handlers"
	"github.com/tbourn/go-codeshare-backend/internal/http/middleware"
	"github.com/tbourn/go-codeshare-backend/internal/identity"
	"github.com/tbourn/go-codeshare-backend/internal/repo"
	"github.com/tbourn/go-codeshare-backend/internal/services"
)

// codeRepoShim adapts the repo free functions to services.CodeRepo.
type codeRepoShim struct{}

func (codeRepoShim) CreateCode(ctx context.Context, db *gorm.DB, c *domain.Code) error {
	return repo.CreateCode(ctx, db, c)
}

func (codeRepoShim) ListActiveCodes(ctx context.Context, db *gorm.DB, today string) ([]domain.Code, error) {
	return repo.ListActiveCodes(ctx, db, today)
}

func (codeRepoShim) ListCodes(ctx context.Context, db *gorm.DB) ([]domain.Code, error) {
	return repo.ListCodes(ctx, db)
}

func (codeRepoShim) GetCode(ctx context.Context, db *gorm.DB, id string) (*domain.Code, error) {
	return repo.GetCode(ctx, db, id)
}

func (codeRepoShim) IncrementClaims(ctx context.Context, db *gorm.DB, id string, ceiling bool) (*domain.Code, error) {
	return repo.IncrementClaims(ctx, db, id, ceiling)
}

func (codeRepoShim) DeleteCode(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteCode(ctx, db, id)
}

func (codeRepoShim) DeleteExpiredCodes(ctx context.Context, db *gorm.DB, today string) (int64, error) {
	return repo.DeleteExpiredCodes(ctx, db, today)
}

func (codeRepoShim) ActiveCodesStats(ctx context.Context, db *gorm.DB, today string) (repo.CodeStats, error) {
	return repo.ActiveCodesStats(ctx, db, today)
}

// idempotencyStore persists Idempotency-Key outcomes for PublishCode.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s idempotencyStore) Record(ctx context.Context, userID, scope, key, resourceID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, userID, scope, key, resourceID, status, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

func (s idempotencyStore) Lookup(ctx context.Context, userID, scope, key string, now time.Time) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil || rec == nil {
		return "", false, err
	}
	return rec.ResourceID, true, nil
}

// Services bundles the application services shared by the router and the
// background sweeper.
type Services struct {
	Codes    *services.CodeService
	Ledger   *services.LedgerService
	Sessions *services.SessionService
	Updates  *services.UpdateService
}

// NewServices builds every service over db. Events go to pub.
func NewServices(db *gorm.DB, cfg config.Config, pub events.Publisher) *Services {
	ledger := services.NewLedgerService(db, pub, cfg.Economy.AdReward, cfg.Economy.AdWatchDelay)
	return &Services{
		Codes:  services.NewCodeService(db, codeRepoShim{}, pub, cfg.Economy.PublishCost, cfg.Economy.Coins, cfg.Economy.EnforceClaimCeiling),
		Ledger: ledger,
		Sessions: services.NewSessionService(
			db,
			identity.NewProvider(db, cfg.Auth.BcryptCost),
			identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
			services.NewAdminSet(cfg.Auth.AdminEmails...),
			ledger,
			pub,
			cfg.Auth.TokenTTL,
		),
		Updates: services.NewUpdateService(db, pub),
	}
}

// RegisterRoutes attaches middleware and every endpoint to r. broker may be
// nil, in which case the events stream answers 503.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc *Services, broker *events.Broker, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskQuery: []string{"token"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression,
			gzip.WithExcludedPaths([]string{apiBase + "/events", "/metrics"})))
	}

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		EnablePolicy:    true,
		NoStorePrefixes: []string{apiBase + "/me", apiBase + "/auth", apiBase + "/admin"},
	}))

	idem := idempotencyStore{db: db, ttl: cfg.IdempotencyTTL}
	r.Use(middleware.Authenticate(svc.Sessions))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.Lookup))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	deps := handlers.Deps{
		Codes:    svc.Codes,
		Ledger:   svc.Ledger,
		Sessions: svc.Sessions,
		Updates:  svc.Updates,
		Idem:     idem,
	}
	if broker != nil {
		deps.Events = broker
	}
	h := handlers.New(deps)

	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/auth/signup", h.SignUp)
		api.POST("/auth/signin", h.SignIn)
		api.POST("/auth/signout", middleware.RequireSession(), h.SignOut)
		api.GET("/auth/session", h.Session)

		api.GET("/codes", h.ListCodes)
		api.POST("/codes", middleware.RequireSession(), h.PublishCode)
		api.POST("/codes/:id/claim", middleware.RequireSession(), h.ClaimCode)

		api.GET("/me/points", middleware.RequireSession(), h.Points)
		api.POST("/me/ads/watch", middleware.RequireSession(), h.WatchAd)

		api.GET("/updates", h.ListUpdates)
		api.GET("/events", h.Events)
	}

	admin := api.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/codes", h.AdminListCodes)
		admin.POST("/codes", h.AdminAddCode)
		admin.POST("/codes/purge", h.AdminPurge)
		admin.DELETE("/codes/:id", h.AdminDeleteCode)
		admin.POST("/updates", h.PostUpdate)
	}
}

// corsMiddleware allows every origin when none are configured; otherwise it
// echoes allow-listed origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Idempotent-Replayed", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// ACAO: * on every response, including ones without an Origin header.
		star := func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
		return []gin.HandlerFunc{star, cors.New(base)}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{cors.New(base)}
}

// limitBody caps request bodies at maxBytes; oversized reads fail downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
