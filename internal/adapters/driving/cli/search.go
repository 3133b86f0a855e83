package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed notes",
	Long: `Searches the indexed note chunks. Uses semantic vector search when
an embedding service is reachable and falls back to full-text search
otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if topicService == nil {
		return errors.New("topic service not configured")
	}

	hits, err := topicService.Search(context.Background(), query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits)
}

func outputSearchJSON(cmd *cobra.Command, hits []driven.ChunkHit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []driven.ChunkHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range hits {
		// Format: [N] Title (Score) / Topic / Snippet
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, hits[i].Chunk.NoteKey.Title, hits[i].Score)
		if hits[i].Cluster != nil {
			cmd.Printf("      Topic: %s\n", hits[i].Cluster.Label)
		}
		if snippet := chunkSnippet(hits[i].Chunk.Text); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// chunkSnippet trims a chunk to a single display line.
func chunkSnippet(text string) string {
	const maxLen = 120
	for i, r := range text {
		if r == '\n' || i >= maxLen {
			return text[:i] + "..."
		}
	}
	return text
}
