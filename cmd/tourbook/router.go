package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tourbook/pkg/authclient"
	"tourbook/pkg/circuitbreaker"
	"tourbook/pkg/config"
	"tourbook/pkg/handlers"
	"tourbook/pkg/metrics"
	"tourbook/pkg/middleware"
	"tourbook/pkg/notify"
	"tourbook/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func newIdentities(cfg *config.Config) *authclient.Client {
	return authclient.New(authclient.Options{
		BaseURL:        cfg.SupabaseURL,
		AnonKey:        cfg.SupabaseAnonKey,
		ServiceRoleKey: cfg.SupabaseServiceRoleKey,
		JWTSecret:      cfg.SupabaseJWTSecret,
		Breaker:        circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
	})
}

// newLimiter shares windows through Redis when REDIS_ADDR is set and keeps
// them in process memory otherwise.
func newLimiter(cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, error) {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("Using Redis rate limiter", slog.String("addr", cfg.RedisAddr))
	return ratelimit.NewRedisLimiter(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow), nil
}

func newRouter(cfg *config.Config, db *gorm.DB, identities handlers.Identities, limiter ratelimit.Limiter, logger *slog.Logger) *gin.Engine {
	var mailer notify.Mailer
	if cfg.MailEnabled() {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}
	h := handlers.New(db, identities, notify.NewDispatcher(db, mailer, logger), logger)

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.GET("/metrics", metrics.Handler())

	h.RegisterRoutes(r, handlers.RouteOptions{
		Limiter:           limiter,
		BackendConfigured: cfg.BackendConfigured(),
	})
	return r
}
