package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-disaster-monitor/internal/api"
	"github.com/mr1hm/go-disaster-monitor/internal/backend"
	"github.com/mr1hm/go-disaster-monitor/internal/config"
	"github.com/mr1hm/go-disaster-monitor/internal/feed"
	"github.com/mr1hm/go-disaster-monitor/internal/ingestion"
	"github.com/mr1hm/go-disaster-monitor/internal/livedata"
	"github.com/mr1hm/go-disaster-monitor/internal/logging"
	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
	"github.com/mr1hm/go-disaster-monitor/internal/observability"
	"github.com/mr1hm/go-disaster-monitor/internal/publish"
	"github.com/mr1hm/go-disaster-monitor/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	normalizer := normalize.New(nil)

	source := backend.NewClient(backend.Config{
		SocialURL:    cfg.Backend.SocialURL,
		SatelliteURL: cfg.Backend.SatelliteURL,
		Timeout:      cfg.Backend.Timeout,
		Retries:      cfg.Backend.Retries,
	}, normalizer, metrics)

	opts := []ingestion.Option{
		ingestion.WithMetrics(metrics),
		ingestion.WithNormalizer(normalizer),
	}

	// Alerts live in Firestore when it is configured and in SQLite otherwise.
	var alerts repository.AlertRepository = db
	if cfg.Firebase.Enabled {
		client, err := livedata.NewFirestoreClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.Credentials)
		if err != nil {
			logging.Fatalf("Failed to initialize Firestore: %v", err)
		}
		defer client.Close()

		opts = append(opts, ingestion.WithListener(livedata.NewFirestoreListener(client)))
		alerts = livedata.NewAlertStore(client)
		slog.Info("live collections enabled", "project", cfg.Firebase.ProjectID)
	}

	if cfg.Feed.Enabled {
		feedClient := feed.New(feed.Config{
			URL:        cfg.Feed.URL,
			BaseDelay:  cfg.Feed.BaseDelay,
			MaxDelay:   cfg.Feed.MaxDelay,
			BufferSize: cfg.Feed.BufferSize,
		}, feed.WithMetrics(metrics), feed.WithNormalizer(normalizer))
		opts = append(opts, ingestion.WithFeed(feedClient))
	}

	if cfg.Kafka.Enabled {
		writer := publish.NewWriter(cfg.Kafka)
		defer writer.Close()
		opts = append(opts, ingestion.WithPublisher(writer))
		slog.Info("kafka publishing enabled", "brokers", cfg.Kafka.Brokers)
	}

	// Start ingestion manager
	mgr := ingestion.NewManager(cfg, source, db, opts...)
	mgr.Start(ctx)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimit))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler := api.NewHandler(api.Services{
		Data:    mgr,
		Reports: db,
		Alerts:  alerts,
		Browser: source,
		Metrics: metrics,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	mgr.Stop() // closes the feed client, which ends every stream

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
