package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"profile-api/internal/auth"
	"profile-api/internal/config"
	"profile-api/internal/httpapi"
	"profile-api/internal/throttle"
	"profile-api/internal/users"
	"profile-api/pkg/logger"
	"profile-api/pkg/metrics"
	"profile-api/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
)

// loginSlotTTL bounds how long a crashed instance can hold a login slot.
const loginSlotTTL = 30 * time.Second

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Error("metrics init failed", "err", err)
		os.Exit(1)
	}

	// A missing or weak signing key is fatal; never fall back to a default.
	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	hasher := auth.NewPasswordHasher(
		auth.WithAlgorithm(cfg.Password.Algorithm),
		auth.WithBcryptCost(cfg.Password.BcryptCost),
	)

	db, err := utils.OpenPostgres(rootCtx, utils.PostgresDriver, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	store := users.NewPostgresStore(db)
	if err := store.EnsureSchema(rootCtx); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	limiter, closeLimiter, err := newLoginLimiter(rootCtx, cfg, log)
	if err != nil {
		log.Error("throttle init failed", "err", err)
		os.Exit(1)
	}
	defer closeLimiter()

	loginSvc, err := auth.NewLoginService(store, hasher, tokens)
	if err != nil {
		log.Error("login init failed", "err", err)
		os.Exit(1)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())
	r.Use(auth.Authenticate(tokens))

	registerRoutes(r, routeDeps{
		handlers: httpapi.Handlers{Auth: loginSvc},
		limiter:  limiter,
		ready: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "jwt_alg", cfg.Auth.JWTAlgorithm)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// newLoginLimiter prefers a Redis-backed cap shared by all instances and
// falls back to an in-process token bucket when Redis is not configured.
func newLoginLimiter(ctx context.Context, cfg config.Config, log *slog.Logger) (throttle.Limiter, func(), error) {
	addr := cfg.RedisAddr()
	if addr == "" {
		log.Info("login throttle: in-process", "rate_per_second", cfg.Login.RatePerSecond, "burst", cfg.Login.Burst)
		return throttle.NewLocalLimiter(cfg.Login.RatePerSecond, cfg.Login.Burst), func() {}, nil
	}

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: addr})
	if err != nil {
		return nil, nil, err
	}
	l, err := throttle.NewRedisLimiter(rdb, "throttle:", cfg.Login.MaxConcurrent, loginSlotTTL)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	log.Info("login throttle: redis", "max_concurrent", cfg.Login.MaxConcurrent)
	return l, func() { _ = rdb.Close() }, nil
}
