package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churn-predictor/internal/cfg"
	"churn-predictor/internal/metrics"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/report"
	"churn-predictor/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

// meteredStore counts run writes
type meteredStore struct {
	*storage.Store
	mw *metrics.MetricsWrapper
}

func (s *meteredStore) SaveRun(run *ml.RunResult) error {
	err := s.Store.SaveRun(run)
	s.mw.RunStored(err)
	return err
}

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize components
	m := metrics.New()
	mw := metrics.NewWrapper(m)

	registry, err := ml.NewRegistry(ml.RegistryConfig{StoreDir: c.ModelStoreDir})
	if err != nil {
		log.Fatal().Err(err).Msg("model registry initialization failed")
	}
	mw.ModelsLoaded(preloadModels(registry))

	store := initializeStorage(c)
	var runStore ml.RunStore
	if store != nil {
		defer store.Close()
		runStore = &meteredStore{Store: store, mw: mw}
	}

	runner := ml.NewRunner(registry, mw)
	server := ml.NewModelServer(runner, registry, runStore, ml.ServerConfig{
		Port:           c.ServerPort,
		DefaultModel:   c.DefaultModel,
		MaxRecords:     c.MaxRecords,
		RequestTimeout: c.RequestTimeout,
		Summarize:      report.Func(c.ChurnThreshold),
	})
	server.Handle("GET /metrics", promhttp.Handler())

	errs := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	log.Info().
		Int("port", c.ServerPort).
		Str("model_store", c.ModelStoreDir).
		Str("default_model", c.DefaultModel.String()).
		Bool("persistence", store != nil).
		Msg("churnd started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errs:
		log.Error().Err(err).Msg("prediction server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown prediction server")
	}
	log.Info().Msg("churnd stopped")
}

// preloadModels loads every model so artifact problems surface at startup. The server
// still starts when a model fails; /health reports it until the artifact is fixed.
func preloadModels(registry *ml.Registry) int {
	loaded, err := registry.Preload()
	if err != nil {
		log.Warn().Err(err).Int("loaded", loaded).Msg("some models are unavailable")
	}
	return loaded
}

// initializeStorage initializes storage if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath != "" {
		store, err := storage.New(c.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
			return nil
		}
		return store
	}
	return nil
}
