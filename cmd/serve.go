package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/logger"
	"github.com/kozaktomas/face-login/internal/metrics"
	"github.com/kozaktomas/face-login/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Login web server.
Reference images are loaded in the background; face login works against
whatever part of the gallery is already loaded.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (overrides WEB_SESSION_SECRET)")
}

// applyServeFlags lets explicitly set flags win over the environment.
func applyServeFlags(cmd *cobra.Command, port *int, host, sessionSecret *string) {
	if cmd.Flags().Changed("port") {
		*port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		*host = mustGetString(cmd, "host")
	}
	if cmd.Flags().Changed("session-secret") {
		*sessionSecret = mustGetString(cmd, "session-secret")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, &cfg.Web.Port, &cfg.Web.Host, &cfg.Web.SessionSecret)

	log, err := logger.NewLogger(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	if cfg.Web.SessionSecret == "" {
		log.Warn("WEB_SESSION_SECRET is not set, using the development secret")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sessionRepo, err := initStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()
	log.Info("storage backend ready", zap.String("backend", database.BackendName()))

	messages, err := database.GetMessageStore()
	if err != nil {
		return fmt.Errorf("message store: %w", err)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	metrics.ObserveGallery(registry.Snapshot())

	loader := newGalleryLoader(cfg, registry, log, func(string, error) {
		metrics.ObserveGallery(registry.Snapshot())
	})
	done := loader.Start(ctx)
	go func() {
		report, ok := <-done
		if !ok {
			return
		}
		for name, loadErr := range report.Failed {
			log.Warn("identity unavailable for face login", zap.String("identity", name), zap.Error(loadErr))
		}
	}()

	server := web.NewServer(cfg, registry, messages, sessionRepo, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("error during shutdown", zap.Error(err))
		}
	}()

	fmt.Printf("Starting Face Login on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
