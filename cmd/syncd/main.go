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

	"example.com/clubsync/internal/config"
	"example.com/clubsync/internal/events"
	persistence "example.com/clubsync/internal/persistence/postgres"
	"example.com/clubsync/internal/strava"
	syncengine "example.com/clubsync/internal/sync"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: metricsMux}
	go func() {
		log.Printf("syncd metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		defer producer.Close()
		publisher = producer
	}

	client := strava.NewClient(
		strava.WithRequestBudget(cfg.RequestsPerMinute),
		strava.WithPageTimeout(cfg.PageTimeout),
	)
	exchanger := strava.NewTokenExchanger(cfg.StravaClientID, cfg.StravaClientSecret, cfg.StravaTokenURL)

	driver := syncengine.NewDriver(repo, exchanger, client,
		syncengine.WithRecentOnly(cfg.SyncRecentOnly),
		syncengine.WithAccountTimeout(cfg.SyncAccountTimeout),
		syncengine.WithPublisher(publisher),
	)
	runner := syncengine.NewRunner(driver)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Start(ctx, cfg.SyncInterval)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
	log.Println("syncd shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics shutdown error: %v", err)
	}

	wg.Wait()
}
