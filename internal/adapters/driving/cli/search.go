package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

var (
	searchOwner     string
	searchTopK      int
	searchThreshold float64
	searchJSON      bool
	searchContext   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the corpus by similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchOwner, "owner", "default", "owner ID to search under")
	searchCmd.Flags().IntVarP(&searchTopK, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", domain.DefaultSimilarityThreshold, "minimum similarity")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchContext, "context", false, "print an assembled context block instead of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

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
	opts := domain.SearchOptions{
		TopK:      searchTopK,
		Threshold: searchThreshold,
	}

	if searchContext {
		result, err := a.retrieval.BuildContext(ctx, query, searchOwner, opts)
		if err != nil {
			return err
		}
		if result.Context == "" {
			cmd.Println("No matching context found.")
			return nil
		}
		cmd.Println(result.Context)
		return nil
	}

	results, err := a.retrieval.Search(ctx, query, searchOwner, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, res := range results {
		cmd.Printf("  [%d] %s chunk %d (%s)\n", i+1, res.DocumentID, res.ChunkIndex, formatSimilarity(res.Similarity))
		cmd.Printf("      %s\n", snippet(res.Content, 120))
		cmd.Println()
	}
	return nil
}

// snippet truncates content to one display line.
func snippet(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
