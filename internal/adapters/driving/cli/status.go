package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var statusOwner string

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show processing status",
	Long: `With a document ID, shows that document's processing progress.
Without arguments, lists documents for the owner and queue statistics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusOwner, "owner", "default", "owner ID to list documents for")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	if len(args) == 1 {
		status, err := a.ingest.Status(ctx, args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	docs, err := a.store.DocumentStore().ListDocuments(ctx, statusOwner)
	if err != nil {
		return err
	}
	stats, err := a.store.JobStore().Stats(ctx)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		cmd.Println("No documents.")
	} else {
		cmd.Println("Documents:")
		for i := range docs {
			doc := &docs[i]
			cmd.Printf("  %s  %-10s  %s (%d%%)\n", doc.ID, doc.Status, doc.FileName, doc.ProgressPercentage())
		}
	}

	cmd.Println()
	cmd.Printf("Queue: %d pending, %d processing, %d completed, %d failed\n",
		stats.Pending, stats.Processing, stats.Completed, stats.Failed)
	return nil
}
