package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"freight-service/internal/accounts"
	"freight-service/internal/carriers"
	"freight-service/internal/config"
	"freight-service/internal/drivers"
	"freight-service/internal/matches"
	"freight-service/internal/matching"
	"freight-service/internal/requests"
	"freight-service/internal/tolerances"
	"freight-service/internal/tracking"
	"freight-service/migrations"
	"freight-service/pkg/db"
	"freight-service/pkg/jwt"
	"freight-service/pkg/kafka"
	"freight-service/pkg/logging"
	rredis "freight-service/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 1. Configuration ──
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if err := jwt.Init(cfg.JWTSecret); err != nil {
		log.Fatal(err)
	}

	// ── 2. PostgreSQL ──
	database, err := db.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		log.Fatal("migrations failed: ", err)
	}

	// ── 3. Redis ──
	redisClient, err := rredis.NewClient(cfg.RedisAddr, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer redisClient.Close()

	// ── 4. Kafka ──
	kafkaClient := kafka.NewClient(cfg.KafkaBrokers, logger)
	if err := kafkaClient.EnsureTopics(ctx,
		kafka.TopicRequestCreated,
		kafka.TopicMatchProposed,
		kafka.TopicMatchAccepted,
		kafka.TopicMatchRejected,
		kafka.TopicDeliveryCompleted,
	); err != nil {
		log.Fatal(err)
	}

	// ── 5. Services ──
	accountSvc := accounts.NewService(database)
	carrierSvc := carriers.NewService(database.Pool)
	driverSvc := drivers.NewService(database.Pool, redisClient)
	toleranceSvc := tolerances.NewService(database.Pool)
	requestSvc := requests.NewService(database.Pool, kafkaClient, logger)
	matchSvc := matches.NewService(database, redisClient, kafkaClient, logger)
	matchingSvc := matching.NewService(database, kafkaClient, logger, cfg.MatchPassLimit)
	trackingSvc := tracking.NewService(database, redisClient, matchSvc, logger)

	// ── 6. Background consumers ──
	matchingSvc.Start(ctx)

	// ── 7. WebSocket hub ──
	hub := tracking.NewHub(logger)
	trackingHandler := tracking.NewHandler(hub, trackingSvc, cfg.RelayWriteTimeout)

	// ── 8. HTTP router ──
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(jwt.OptionalAuth)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"freight-service"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/", accounts.NewHandler(accountSvc).Routes())
	r.Mount("/api/carriers", carriers.NewHandler(carrierSvc).Routes())
	r.Mount("/api/drivers", drivers.NewHandler(driverSvc).Routes())
	r.Mount("/api/tolerances", tolerances.NewHandler(toleranceSvc).Routes())
	r.Mount("/api/delivery-requests", requests.NewHandler(requestSvc).Routes())
	r.Mount("/api/matches", matches.NewHandler(matchSvc).Routes())
	r.Mount("/api/auto-match", matching.NewHandler(matchingSvc).Routes())
	r.Mount("/api/location", trackingHandler.LocationRoutes())
	r.Mount("/ws", trackingHandler.Routes())

	// ── 9. Start server ──
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	go func() {
		logger.Info("freight-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// ── 10. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutCancel()
	srv.Shutdown(shutCtx)
	cancel() // stop consumers
}
