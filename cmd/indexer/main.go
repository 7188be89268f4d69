package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/askerfotball/club-assistant/internal/bootstrap"
	"github.com/askerfotball/club-assistant/internal/config"
	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/observability/logging"
	"github.com/askerfotball/club-assistant/internal/observability/metrics"
)

const buildTimeout = 15 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.NewJSONLogger("club-assistant-indexer", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	indexerMetrics := metrics.NewIndexerMetrics("club-assistant-indexer")
	go serveMetrics(cfg.IndexerMetricsPort, indexerMetrics, log)

	rebuild := func(ctx context.Context, buildID string) error {
		buildCtx, cancel := context.WithTimeout(ctx, buildTimeout)
		defer cancel()

		start := time.Now()
		indexerMetrics.StartBuild()
		build, err := app.BuildUC.Rebuild(buildCtx, buildID)
		chunkCount := 0
		if build != nil {
			chunkCount = build.ChunkCount
		}
		indexerMetrics.FinishBuild("club-assistant-indexer", time.Since(start), chunkCount, err)
		if err != nil {
			return err
		}

		app.Index.Invalidate()
		log.Info("index rebuilt",
			"build_id", build.ID,
			"documents", build.DocumentCount,
			"chunks", build.ChunkCount,
		)
		return nil
	}

	// First start on an empty volume: build before accepting requests.
	if _, err := app.Store.Manifest(ctx); domain.IsKind(err, domain.ErrIndexMissing) {
		log.Info("no published index, building")
		if err := rebuild(ctx, uuid.NewString()); err != nil {
			log.Error("initial build failed", "error", err)
		}
	}

	log.Info("indexer subscribed", "subject", cfg.NATSSubject)
	if err := app.Queue.SubscribeReindexRequested(ctx, rebuild); err != nil {
		log.Error("indexer subscription failed", "error", err)
		os.Exit(1)
	}
}

func serveMetrics(port string, m *metrics.IndexerMetrics, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Error("metrics server failed", "error", err)
	}
}
