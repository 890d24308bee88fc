package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"permit_flow_app_go/config"
	"permit_flow_app_go/db"
	"permit_flow_app_go/handlers"
	"permit_flow_app_go/logging"
	"permit_flow_app_go/middleware"
	"permit_flow_app_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), loadConfig())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := db.Initialize(cfg); err != nil {
		return err
	}
	defer db.Close()

	if err := db.AutoMigrate(db.DB); err != nil {
		return err
	}

	dispatcher := services.NewDispatcher(services.NewEmailNotifier(cfg), cfg.NotificationWorkers, cfg.NotificationQueueSize)
	// Runs before db.Close so queued deliveries can still record themselves
	defer dispatcher.Close()

	codeStore, closeCodeStore, err := newCodeStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCodeStore()

	cases := services.NewCaseService(db.DB, services.NewStorage(cfg), dispatcher)
	cases.SetMaxUploadSize(cfg.MaxUploadSize)
	verification := services.NewVerificationService(codeStore, dispatcher)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(middleware.APIRateLimiter.Middleware())

	handlers.RegisterRoutes(e, handlers.New(cases, verification, db.DB, cfg.MaxUploadSize), cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Log.WithField("port", cfg.ServerPort).Info("Starting server")
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newCodeStore uses Redis when REDIS_URL is set so codes survive restarts and
// are shared between instances
func newCodeStore(ctx context.Context, cfg *config.Config) (services.VerificationCodeStore, func(), error) {
	if cfg.RedisURL == "" {
		logging.Log.Info("Verification codes kept in memory")
		return services.NewMemoryCodeStore(services.VerificationCodeTTL), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logging.Log.WithField("addr", opts.Addr).Info("Verification codes kept in Redis")
	return services.NewRedisCodeStore(client), func() { client.Close() }, nil
}
