package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"churn-predictor/internal/cfg"
	"churn-predictor/internal/client"
	"churn-predictor/internal/common"
	"churn-predictor/internal/dataset"
	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/report"
	"churn-predictor/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Parse command line arguments
	var (
		inputPath  = flag.String("input", "", "Customer dataset (.csv or .json)")
		modelName  = flag.String("model", "", "Model: rf, dt or lr (default from DEFAULT_MODEL)")
		serverURL  = flag.String("server", "", "churnd URL; predict locally when empty")
		outputPath = flag.String("output", "", "Output directory for report files")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		history    = flag.Int("history", 0, "Print an overview of the last N stored runs and exit")
		deleteID   = flag.String("delete", "", "Delete the stored run with this id and exit")
	)
	flag.Parse()

	// Setup logging
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
	defer cancel()

	if *history > 0 {
		if err := printHistory(ctx, config, *serverURL, *history); err != nil {
			log.Fatal().Err(err).Msg("Failed to read run history")
		}
		return
	}

	if *deleteID != "" {
		if err := deleteRun(ctx, config, *serverURL, *deleteID); err != nil {
			log.Fatal().Err(err).Str("run_id", *deleteID).Msg("Failed to delete run")
		}
		log.Info().Str("run_id", *deleteID).Msg("Run deleted")
		return
	}

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: churnpredict -input customers.csv [-model rf] [-server URL] [-output dir]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	model := config.DefaultModel
	if *modelName != "" {
		model, err = common.ParseModelID(*modelName)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid model")
		}
	}

	table, err := dataset.Load(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dataset")
	}
	source := filepath.Base(*inputPath)

	var run *ml.RunResult
	if *serverURL != "" {
		c := client.New(*serverURL, config.RequestTimeout)
		info, err := c.Ready(ctx, model)
		if err != nil {
			log.Fatal().Err(err).Str("model", model.String()).Msg("Server cannot serve model")
		}
		log.Info().
			Str("model", model.String()).
			Str("kind", info.Kind).
			Str("version", info.Version).
			Int("features", len(info.Features)).
			Msg("Server ready")

		resp, err := c.Predict(ctx, model, source, table)
		if err != nil {
			log.Fatal().Err(err).Msg("Remote prediction failed")
		}
		run = &resp.RunResult
	} else {
		run, err = predictLocal(ctx, config, model, source, table)
		if err != nil {
			log.Fatal().Err(err).Msg("Prediction failed")
		}
	}

	reporter := report.NewReporter(run, config.ChurnThreshold, *outputPath)
	if err := reporter.WriteSummary(os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Failed to print summary")
	}
	if *outputPath != "" {
		if err := reporter.GenerateReport(); err != nil {
			log.Fatal().Err(err).Msg("Failed to write report")
		}
	}
}

// predictLocal runs the models in process and stores the run when DATA_PATH is set.
func predictLocal(ctx context.Context, config cfg.Settings, model common.ModelID, source string, table *features.Table) (*ml.RunResult, error) {
	registry, err := ml.NewRegistry(ml.RegistryConfig{StoreDir: config.ModelStoreDir})
	if err != nil {
		return nil, err
	}

	run, err := ml.NewRunner(registry, nil).PredictRun(ctx, table, model, source)
	if err != nil {
		return nil, err
	}

	if config.DataPath == "" {
		return run, nil
	}
	store, err := storage.New(config.DataPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if err := store.SaveRun(run); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}
	log.Info().Str("run_id", run.ID).Str("data_path", config.DataPath).Msg("Run stored")
	return run, nil
}

// printHistory prints the overview of the latest runs, from churnd when a server is
// given and from the local store otherwise.
func printHistory(ctx context.Context, config cfg.Settings, serverURL string, limit int) error {
	var runs []ml.RunResult

	if serverURL != "" {
		c := client.New(serverURL, config.RequestTimeout)
		headers, err := c.Runs(ctx, limit)
		if err != nil {
			return err
		}
		for _, h := range headers {
			resp, err := c.Run(ctx, h.ID)
			if err != nil {
				return err
			}
			runs = append(runs, resp.RunResult)
		}
	} else {
		if config.DataPath == "" {
			return fmt.Errorf("DATA_PATH is not set")
		}
		store, err := storage.New(config.DataPath)
		if err != nil {
			return err
		}
		defer store.Close()

		headers, err := store.ListRuns(limit)
		if err != nil {
			return err
		}
		for _, h := range headers {
			run, err := store.GetRun(h.ID)
			if err != nil {
				return err
			}
			runs = append(runs, *run)
		}
	}

	return report.WriteOverview(os.Stdout, report.NewOverview(runs))
}

// deleteRun removes a run from churnd when a server is given and from the local store
// otherwise.
func deleteRun(ctx context.Context, config cfg.Settings, serverURL, id string) error {
	if serverURL != "" {
		return client.New(serverURL, config.RequestTimeout).DeleteRun(ctx, id)
	}
	if config.DataPath == "" {
		return fmt.Errorf("DATA_PATH is not set")
	}
	store, err := storage.New(config.DataPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.DeleteRun(id)
}
