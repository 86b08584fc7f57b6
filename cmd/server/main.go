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

	"github.com/Ahmad-Hisham007/tutorate-server/internal/bootstrap"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/charge"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/config"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/identity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/scheduler"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/server"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/database"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/logger"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/observability"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	var (
		envFile     = pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
		migrateOnly = pflag.Bool("migrate-only", false, "run database migrations and exit")
		seedAdmin   = pflag.Bool("seed-admin", false, "create the admin account from ADMIN_EMAIL and ADMIN_PASSWORD")
	)
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log, *migrateOnly, *seedAdmin); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, migrateOnly, seedAdmin bool) error {
	flushSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv, cfg.Release)
	if err != nil {
		log.Warn("sentry disabled", zap.Error(err))
	}
	defer flushSentry()

	db, err := database.Connect(database.Options{
		DSN:             cfg.DatabaseURL,
		Host:            cfg.DBHost,
		User:            cfg.DBUser,
		Password:        cfg.DBPass,
		Name:            cfg.DBName,
		Port:            cfg.DBPort,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		Debug:           cfg.DBDebug,
	}, log)
	if err != nil {
		return err
	}

	if err := bootstrap.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if migrateOnly {
		log.Info("migrations applied")
		return nil
	}

	st := store.New(db)

	if seedAdmin {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := bootstrap.SeedAdmin(ctx, st.Accounts(), cfg.AdminEmail, cfg.AdminPassword, log); err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
	}

	redisClient := connectRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var meiliClient meilisearch.ServiceManager
	if host := cfg.MeiliHost(); host != "" {
		meiliClient = meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	} else {
		log.Warn("MEILISEARCH_HOST not set, search indexing disabled")
	}

	var images storage.ImageStorage
	if cfg.CloudinaryURL != "" || cfg.CloudinaryCloudName != "" {
		images, err = storage.NewCloudinaryStorage(storage.CloudinaryOptions{
			URL:       cfg.CloudinaryURL,
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize cloudinary storage: %w", err)
		}
	} else {
		log.Warn("cloudinary not configured, photo uploads disabled")
	}

	charges := charge.Disabled()
	if cfg.StripeSecretKey != "" {
		charges = charge.NewStripeAuthority(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, payments disabled")
	}

	health := database.NewHealth(st, cfg.StoreTimeout, log)
	tokens := identity.NewJWTProvider(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.NewServer(server.Deps{
		Config:   cfg,
		Store:    st,
		Redis:    redisClient,
		Search:   meiliClient,
		Images:   images,
		Charges:  charges,
		Verifier: tokens,
		Issuer:   tokens,
		Alerter:  observability.SentryAlerter{},
		Health:   health,
		Log:      log,
	})

	jobs := scheduler.New(5*time.Minute, log)
	for _, job := range srv.Jobs(health, log) {
		if err := jobs.Register(job); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
	}
	jobs.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.AppEnv))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	jobs.Stop(shutdownCtx)
	if _, err := jobs.RunByName(shutdownCtx, "view_sync"); err != nil {
		log.Warn("final view sync", zap.Error(err))
	}
	return nil
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; the
// features backed by redis then fall back or switch off.
func connectRedis(cfg *config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, running without redis")
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL, running without redis", zap.Error(err))
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, running without redis", zap.Error(err))
		client.Close()
		return nil
	}

	log.Info("redis connected")
	return client
}
