// Command server runs the code-sharing API: HTTP routes, the WebSocket event
// stream and the hourly expiry sweeper.
//
// @title                      Codeshare API
// @version                    1.0
// @description                Share crypto red-packet codes, earn points by watching ads and claim codes.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-codeshare-backend/internal/config"
	"github.com/tbourn/go-codeshare-backend/internal/events"
	httpapi "github.com/tbourn/go-codeshare-backend/internal/http"
	"github.com/tbourn/go-codeshare-backend/internal/observability"
	"github.com/tbourn/go-codeshare-backend/internal/repo"
	"github.com/tbourn/go-codeshare-backend/internal/sweeper"
	"github.com/tbourn/go-codeshare-backend/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.ConfigureLogging(nil, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	gin.SetMode(cfg.GinMode)

	ctx, stop := sysutil.ShutdownContext(context.Background())
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup")
	}

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database")
	}

	broker := events.NewBroker()
	var pub events.Publisher = broker
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis")
		}
		pub = events.NewRedisBridge(rdb, cfg.Redis.Channel, broker)
	}

	svc := httpapi.NewServices(db, cfg, pub)

	sw := sweeper.New(svc.Sessions, svc.Codes, cfg.Economy.SweepInterval)
	sw.Pruners["sessions"] = svc.Sessions.PruneExpired
	sw.Pruners["idempotency"] = func(ctx context.Context, now time.Time) (int64, error) {
		return repo.PurgeIdempotency(ctx, db, now)
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, svc, broker, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sw.Run(ctx)
	}()
	if bridge, ok := pub.(*events.RedisBridge); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Run(ctx); err != nil {
				log.Error().Err(err).Msg("redis event bridge stopped")
			}
		}()
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	drain, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drain); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := shutdownTracing(drain); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.DBPath
	if cfg.DBDriver == "postgres" {
		dsn = cfg.DatabaseURL
	}
	db, err := repo.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return nil, err
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
