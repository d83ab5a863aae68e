package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/database/memory"
	"github.com/kozaktomas/face-login/internal/database/postgres"
	"github.com/kozaktomas/face-login/internal/gallery"
	"github.com/kozaktomas/face-login/internal/logger"
	"github.com/kozaktomas/face-login/internal/web/middleware"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadConfig loads and validates the configuration, applying global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if galleryFile != "" {
		cfg.Gallery.File = galleryFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// thresholdFlag returns --threshold when it was given, MATCH_THRESHOLD otherwise.
func thresholdFlag(cmd *cobra.Command, cfg *config.Config) (int, error) {
	if !cmd.Flags().Changed("threshold") {
		return cfg.Match.Threshold, nil
	}
	threshold := mustGetInt(cmd, "threshold")
	maxDistance := cfg.Match.GridSize * cfg.Match.GridSize
	if threshold < 0 || threshold > maxDistance {
		return 0, fmt.Errorf("--threshold must be between 0 and %d, got %d", maxDistance, threshold)
	}
	return threshold, nil
}

// newCLILogger builds a logger that stays quiet below warnings unless LOG_LEVEL says otherwise.
func newCLILogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "warn"
	}
	return logger.NewLogger(cfg.Log.Env, level)
}

// buildRegistry creates the registry for the configured extractor and registers the seeds.
func buildRegistry(cfg *config.Config) (*gallery.Registry, error) {
	extractor, err := cfg.Match.Extractor()
	if err != nil {
		return nil, err
	}

	seeds, err := cfg.Gallery.Seeds()
	if err != nil {
		return nil, err
	}

	registry := gallery.NewRegistry(extractor)
	if err := registry.Register(seeds); err != nil {
		return nil, fmt.Errorf("registering gallery: %w", err)
	}
	return registry, nil
}

// initStorage registers the PostgreSQL backend when DATABASE_URL is set, the
// in-memory backend otherwise. It returns the session repository (nil for memory).
func initStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (middleware.SessionRepository, error) {
	if cfg.Database.URL == "" {
		memory.Register()
		return nil, nil
	}

	if err := postgres.Initialize(ctx, &cfg.Database, log.Named("postgres")); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return postgres.NewSessionRepository(postgres.GetGlobalPool()), nil
}

// closeStorage closes the PostgreSQL pool if one was opened.
func closeStorage() {
	if pool := postgres.GetGlobalPool(); pool != nil {
		pool.Close()
	}
}

// newGalleryLoader builds the reference image loader with the backend's fingerprint cache.
func newGalleryLoader(cfg *config.Config, registry *gallery.Registry, log *zap.Logger, onProgress func(string, error)) *gallery.Loader {
	opts := []gallery.LoaderOption{
		gallery.WithConcurrency(cfg.Gallery.Concurrency),
		gallery.WithLogger(log.Named("gallery")),
		gallery.WithProgress(onProgress),
	}
	if cache, err := database.GetFingerprintStore(); err == nil {
		opts = append(opts, gallery.WithCache(cache))
	}
	return gallery.NewLoader(registry, gallery.NewSourceFetcher(cfg.Gallery.Dir), opts...)
}

// loadGallery populates the registry and blocks until every identity was tried,
// drawing a progress bar unless JSON output was requested.
func loadGallery(ctx context.Context, cfg *config.Config, registry *gallery.Registry, log *zap.Logger, jsonOutput bool) gallery.LoadReport {
	bar := newLoadProgressBar(len(registry.Pending()), jsonOutput)
	loader := newGalleryLoader(cfg, registry, log, func(string, error) {
		if bar != nil {
			bar.Add(1)
		}
	})

	report := loader.Load(ctx)
	if bar != nil {
		fmt.Fprintln(os.Stderr)
	}
	return report
}

func newLoadProgressBar(count int, jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput || count == 0 {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Loading gallery"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

// printLoadFailures lists identities whose reference image could not be loaded.
func printLoadFailures(report gallery.LoadReport) {
	if len(report.Failed) == 0 {
		return
	}
	fmt.Printf("\nFailed to load %d reference image(s):\n", len(report.Failed))
	for _, name := range slices.Sorted(maps.Keys(report.Failed)) {
		fmt.Printf("  - %s: %v\n", name, report.Failed[name])
	}
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
