package main

// Periodically expires overdue document requests:
//   go run ./cmd/sweeper

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docgate-backend/internal/docrequests"
	"docgate-backend/internal/shared/config"
	"docgate-backend/internal/shared/metrics"
	"docgate-backend/internal/shared/storage/db"
	"docgate-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := db.OptionsFromEnv(db.DefaultSweeperOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer sqlDB.Close()

	svc := &docrequests.Service{Repo: &docrequests.PGRepo{DB: sqlDB}}

	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	log.Printf("sweeper started interval=%s", interval)

	// Sweep once immediately so a restart never extends a request's life.
	sweep(ctx, svc)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper shutting down")
			return
		case <-ticker.C:
			sweep(ctx, svc)
		}
	}
}

func sweep(ctx context.Context, svc *docrequests.Service) {
	start := time.Now()
	count, err := svc.SweepExpired(ctx)
	elapsed := time.Since(start)
	metrics.ObserveSweepDurationMs(float64(elapsed.Microseconds()) / 1000.0)
	if err != nil {
		telemetry.Error("sweep.failed", map[string]any{
			"error":       err.Error(),
			"duration_ms": float64(elapsed.Microseconds()) / 1000.0,
		})
		return
	}
	metrics.AddDocRequestsExpired(count)
	if count > 0 {
		telemetry.Info("sweep.expired", map[string]any{
			"count":       count,
			"duration_ms": float64(elapsed.Microseconds()) / 1000.0,
		})
	}
}
