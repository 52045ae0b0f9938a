package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corpus-ai/corpus/internal/adapters/driving/httpapi"
	"github.com/corpus-ai/corpus/internal/adapters/driving/watch"
	"github.com/corpus-ai/corpus/internal/logger"
)

var serveOwner string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion and retrieval daemon",
	Long: `Starts the HTTP API, the background processing worker and,
when a drop directory is configured, the filesystem watcher.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveOwner, "owner", "default", "owner ID for files from the drop directory")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a.worker.Start(ctx)

	var watcher *watch.Watcher
	if cfg.Storage.DropDir != "" {
		watcher = watch.NewWatcher(cfg.Storage.DropDir, serveOwner, a.ingest)
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	server := httpapi.NewServer(httpapi.ServerConfig{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Ingestor:       a.ingest,
		Retrieval:      a.retrieval,
		Documents:      a.store.DocumentStore(),
		Jobs:           a.store.JobStore(),
		Embedder:       a.embedder,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
	}

	return server.Shutdown(context.Background())
}
