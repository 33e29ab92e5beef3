package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"daymark/api/internal/app"
	"daymark/api/internal/archive"
	"daymark/api/internal/auth"
	"daymark/api/internal/authpw"
	"daymark/api/internal/blobstore"
	"daymark/api/internal/config"
	"daymark/api/internal/export"
	"daymark/api/internal/search"
	"daymark/api/internal/session"
	"daymark/api/internal/store"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("DAYMARK_CONFIG"))
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	ctx := context.Background()

	sessions, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer sessions.Close()

	deps := app.Deps{
		Log:      logger,
		Sessions: sessions,
		Google:   auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		Export:   export.NewService(),
	}

	// Password accounts live in Postgres regardless of the data backend; the
	// sheets mode can run without them when only Google sign-in is wanted.
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		deps.Passwd = authpw.NewService(store.NewPostgresStore(db))

		if cfg.Backend == "postgres" {
			deps.Blob = blobstore.NewPostgresStore(db)
		}
	}

	switch cfg.Backend {
	case "redis":
		blob, err := blobstore.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis data store failed", zap.Error(err))
		}
		defer blob.Close()
		deps.Blob = blob
	case "s3":
		blob, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			logger.Fatal("s3 data store failed", zap.Error(err))
		}
		deps.Blob = blob
	case "postgres", "sheets":
		// postgres handled above; sheets needs no blob store
	default:
		logger.Fatal("unknown backend", zap.String("backend", cfg.Backend))
	}
	if cfg.Backend == "postgres" && deps.Blob == nil {
		logger.Fatal("postgres backend requires DATABASE_URL")
	}

	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		logger.Fatal("create archive dir", zap.Error(err))
	}
	deps.Archive = archive.New(cfg.ArchiveDir)

	service := app.NewService(cfg, deps)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	}
	searchService := search.NewService(meiliClient, search.NewScan(service.SearchLoader()), logger)
	defer searchService.Close()
	service.SetSearch(searchService)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("daymark api listening", zap.String("addr", cfg.Addr), zap.String("backend", cfg.Backend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
