package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/clubsync/internal/api"
	"example.com/clubsync/internal/auth"
	"example.com/clubsync/internal/cache"
	"example.com/clubsync/internal/config"
	"example.com/clubsync/internal/events"
	persistence "example.com/clubsync/internal/persistence/postgres"
	"example.com/clubsync/internal/strava"
	syncengine "example.com/clubsync/internal/sync"
	httptransport "example.com/clubsync/internal/transport/http"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	leaderboards := cache.NewLeaderboards(15 * time.Minute)

	var wg sync.WaitGroup

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		defer producer.Close()
		publisher = producer

		// Runs by the standalone daemon land activities this process never
		// saw; consuming its completion events keeps the local cache honest.
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.KafkaBrokers,
			GroupID:        cfg.ConsumerGroup,
			Topic:          cfg.EventsTopic,
			MinBytes:       1e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		})
		proc := events.NewProcessor(reader, events.NewInvalidationHandler(leaderboards))

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()
			if err := proc.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("event consumer stopped with error: %v", err)
			}
		}()
	}

	client := strava.NewClient(
		strava.WithRequestBudget(cfg.RequestsPerMinute),
		strava.WithPageTimeout(cfg.PageTimeout),
	)
	exchanger := strava.NewTokenExchanger(cfg.StravaClientID, cfg.StravaClientSecret, cfg.StravaTokenURL)

	// Admin-triggered runs default to the full strategy, including bootstrap
	// fetches; a trigger request can still ask for recent-only.
	driver := syncengine.NewDriver(repo, exchanger, client,
		syncengine.WithAccountTimeout(cfg.SyncAccountTimeout),
		syncengine.WithPublisher(publisher),
		syncengine.WithInvalidator(leaderboards),
	)
	runner := syncengine.NewRunner(driver)

	handler := api.NewHandler(repo, runner, leaderboards,
		api.WithRunContext(ctx),
		api.WithConnectProvider(exchanger, client),
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, auth.DefaultSkipper)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(logger(cors(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("clubsync api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	wg.Wait()
}
