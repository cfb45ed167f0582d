// @title           Livey Backend API
// @version         1.0.0
// @description     Live-shopping order intake with Google Sheets sync. Customers place orders from the live widget; sellers manage them and mirror them into a spreadsheet.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"livey-backend/internal/config"
	"livey-backend/internal/database"
	"livey-backend/internal/google"
	"livey-backend/internal/handlers"
	"livey-backend/internal/limiter"
	"livey-backend/internal/middleware"
	"livey-backend/internal/oauthstate"
	"livey-backend/internal/repository/postgres"
	"livey-backend/internal/services"
	"livey-backend/internal/supabase"
	"livey-backend/internal/vault"
)

const (
	shutdownTimeout = 10 * time.Second
	rateLimitRetain = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Migrations
	migrator, err := database.NewMigrator(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	err = migrator.Run(ctx)
	migrator.Close()
	if err != nil {
		return err
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	orderRepo := postgres.NewOrderRepo(db)
	productRepo := postgres.NewProductRepo(db)
	connectionRepo := postgres.NewConnectionRepo(db)

	cipher, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("init token vault: %w", err)
	}

	var states oauthstate.Store = oauthstate.NewMemoryStore()
	if cfg.OAuthStateBackend == "postgres" {
		states = oauthstate.NewPGStore(db.Pool)
	}

	loc, err := time.LoadLocation(cfg.SheetsTimezone)
	if err != nil {
		return fmt.Errorf("load sheets timezone: %w", err)
	}

	authClient := google.NewAuthClient(google.AuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Timeout:      cfg.ExternalTimeout,
	}, states, log.Named("google.auth"))
	sheetsClient := google.NewSheetsClient(loc, cfg.ExternalTimeout, log.Named("google.sheets"))

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}

	// Services
	tokens := services.NewTokenManager(connectionRepo, authClient, cipher, log)
	syncSvc := services.NewSyncService(orderRepo, connectionRepo, tokens, sheetsClient, log)
	dispatcher := services.NewDispatcher(syncSvc, cfg.SyncWorkers, cfg.SyncQueueSize, 2*cfg.ExternalTimeout, log.Named("sync"))
	orderSvc := services.NewOrderService(orderRepo, productRepo, dispatcher, services.StockPolicy(cfg.StockPolicy), log)
	retrySvc := services.NewRetryService(orderRepo, syncSvc, log)
	sheetsSvc := services.NewSheetsService(connectionRepo, orderRepo, authClient, sheetsClient, cipher, tokens, cfg.SheetsTitle, log)

	rateLimiter := limiter.NewPG(db.Pool)

	router, err := handlers.NewRouter(handlers.RouterConfig{
		CORSOrigins:     cfg.CORSOrigins,
		CronSecret:      cfg.CronSecret,
		OrderRateLimit:  cfg.OrderRateLimit,
		OrderRateWindow: cfg.OrderRateWindow,
		TrustedProxies:  cfg.TrustedProxies,
	}, handlers.RouterDeps{
		Orders:   handlers.NewOrdersHandler(orderSvc, log),
		Sheets:   handlers.NewSheetsHandler(sheetsSvc, cfg.FrontendURL, log),
		Cron:     handlers.NewCronHandler(retrySvc, log),
		Verifier: verifier,
		Limiter:  rateLimiter,
		Log:      log.Named("http"),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Stops after the HTTP server so late requests can still enqueue.
	g.Go(func() error { return dispatcher.Run(gctx) })

	g.Go(func() error { return oauthstate.RunJanitor(gctx, states, oauthstate.GCInterval, log.Named("oauthstate")) })
	g.Go(func() error { return rateLimiter.RunJanitor(gctx, time.Hour, rateLimitRetain, log.Named("limiter")) })

	if cfg.SyncSweepInterval > 0 {
		g.Go(func() error { return retrySvc.Run(gctx, cfg.SyncSweepInterval) })
	}

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// newVerifier prefers local HS256 verification and falls back to asking Supabase Auth.
func newVerifier(cfg *config.Config) (middleware.TokenVerifier, error) {
	if cfg.SupabaseJWTSecret != "" {
		return middleware.NewJWTVerifier(cfg.SupabaseJWTSecret), nil
	}
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey)
	if err != nil {
		return nil, err
	}
	return client, nil
}
