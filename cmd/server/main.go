package main // Entry point package

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/apartment-management/internal/config"
	"github.com/iliyamo/apartment-management/internal/database"
	"github.com/iliyamo/apartment-management/internal/handler"
	"github.com/iliyamo/apartment-management/internal/middleware"
	"github.com/iliyamo/apartment-management/internal/queue"
	"github.com/iliyamo/apartment-management/internal/repository"
	"github.com/iliyamo/apartment-management/internal/router"
	"github.com/iliyamo/apartment-management/internal/service"
	"github.com/iliyamo/apartment-management/internal/utils"
	"github.com/iliyamo/apartment-management/internal/validator"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// run wires every component and serves until a signal arrives or the
// listener fails.  Deferred cleanup runs on every return path.
func run(cfg config.Config, logger *slog.Logger) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return errors.Wrap(err, "database unavailable")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return errors.Wrap(err, "schema bootstrap failed")
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	tokens, err := utils.NewTokenIssuer(utils.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		return errors.Wrap(err, "token issuer misconfigured")
	}

	// ----- repositories & services -----
	users := repository.NewUserRepo(db, cfg.BcryptCost)
	apartments := repository.NewApartmentRepo(db)
	auth := service.NewAuthService(users, tokens, logger)

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.AMQPEnabled {
		events = service.NewAMQPPublisher(cfg.AMQPURL, logger)
		go func() {
			if err := queue.StartVisitorConsumer(ctx, cfg.AMQPURL, cfg.VisitorLogDir, logger); err != nil && ctx.Err() == nil {
				logger.Error("visitor consumer stopped", "err", err)
			}
		}()
	}

	// ----- echo -----
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.NewErrorHandler(logger).HandleHTTPError
	e.Validator = validator.New()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	}))

	cacheCfg := config.LoadCacheConfig()
	var purge func(ctx context.Context) error
	if rdb != nil {
		purge = func(ctx context.Context) error { return middleware.PurgeCache(ctx, rdb, cacheCfg) }
	}

	router.Register(e, router.Deps{
		DB:            db,
		Auth:          handler.NewAuthHandler(auth, cfg.CookieSecure),
		Apartments:    handler.NewApartmentHandler(apartments),
		Visitors:      handler.NewVisitorHandler(repository.NewVisitorRepo(db), events, logger),
		Maintenance:   handler.NewMaintenanceHandler(repository.NewMaintenanceRepo(db)),
		Payments:      handler.NewPaymentHandler(repository.NewPaymentRepo(db), apartments),
		Announcements: handler.NewAnnouncementHandler(repository.NewAnnouncementRepo(db), purge, logger),
		Gate:          middleware.AuthGate(auth),
		RateLimit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Cache:         middleware.NewRedisCache(cacheCfg, rdb, logger),
	})

	return serve(ctx, e, ":"+cfg.Port, logger)
}

// serve runs e on addr until ctx is done or the listener fails, then shuts
// it down.  A listener failure is returned after shutdown completes.
func serve(ctx context.Context, e *echo.Echo, addr string, logger *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var failed error
	select {
	case <-ctx.Done():
	case failed = <-serveErr:
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	logger.Info("server stopped")
	if failed != nil {
		return errors.Wrap(failed, "serve")
	}
	return nil
}

// newLogger builds the process logger: JSON by default, text when LOG_PRETTY
// is set.
func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.LogPretty {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h).With("service", "apartment-management", "env", cfg.Env)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
