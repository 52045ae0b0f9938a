package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driving"
)

var (
	ingestOwner string
	ingestWait  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a local file into the corpus",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "default", "owner ID to ingest under")
	ingestCmd.Flags().BoolVar(&ingestWait, "wait", true, "wait for processing to finish")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	doc, err := a.ingest.Ingest(ctx, driving.IngestRequest{
		OwnerID:  ingestOwner,
		FileName: filepath.Base(path),
		Location: "file://" + path,
		ByteSize: info.Size(),
	})
	if err != nil {
		return err
	}

	cmd.Printf("Queued %s as document %s\n", doc.FileName, doc.ID)
	if !ingestWait {
		return nil
	}

	a.worker.Start(ctx)

	for {
		status, err := a.ingest.Status(ctx, doc.ID)
		if err != nil {
			return err
		}
		switch status.Status {
		case domain.DocumentProcessed:
			cmd.Printf("Processed: %d chunks embedded\n", status.EmbeddingCount)
			return nil
		case domain.DocumentFailed:
			return errors.New(status.ErrorMessage)
		}

		cmd.Printf("\r%s (%d%%)", status.ProgressMessage, status.ProgressPercentage)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// formatSimilarity renders a similarity score as a percentage.
func formatSimilarity(sim float64) string {
	return fmt.Sprintf("%.1f%%", sim*100)
}
