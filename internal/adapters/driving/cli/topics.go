package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
)

var topicsJSON bool

var (
	topicTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	topicOutlierStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C7086"))
	topicSummaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List organised topics",
	Long: `Lists the topic clusters from the last organise pass with their
member notes. The Uncategorized group, if any, is shown last.`,
	RunE: runTopics,
}

func init() {
	topicsCmd.Flags().BoolVar(&topicsJSON, "json", false, "output topics as JSON")
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, _ []string) error {
	if topicService == nil {
		return errors.New("topic service not configured")
	}

	clusters, err := topicService.List(context.Background())
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}

	if topicsJSON {
		return outputTopicsJSON(cmd, clusters)
	}
	return outputTopicsList(cmd, clusters)
}

func outputTopicsJSON(cmd *cobra.Command, clusters []domain.Cluster) error {
	data, err := json.MarshalIndent(clusters, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputTopicsList(cmd *cobra.Command, clusters []domain.Cluster) error {
	if len(clusters) == 0 {
		cmd.Println("No topics yet. Run 'sema organize' first.")
		return nil
	}

	for _, cluster := range clusters {
		style := topicTitleStyle
		if cluster.ID == domain.Outlier {
			style = topicOutlierStyle
		}

		cmd.Printf("%s (%d notes)\n", style.Render(cluster.Label), cluster.Size())
		cmd.Printf("  %s\n", topicSummaryStyle.Render(cluster.Summary))
		for _, member := range cluster.Members {
			cmd.Printf("  - %s\n", member.Title)
		}
		cmd.Println()
	}
	return nil
}
