package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
)

var organizeLimit int

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Index and cluster notes into topics",
	Long: `Runs one organise pass: fetches notes from the configured source,
chunks and embeds the new and modified ones, then clusters all notes
into named topics. Unchanged notes are skipped.`,
	RunE: runOrganize,
}

func init() {
	organizeCmd.Flags().IntVarP(&organizeLimit, "limit", "n", 0, "maximum notes to process (0 = all)")
	rootCmd.AddCommand(organizeCmd)
}

func runOrganize(cmd *cobra.Command, _ []string) error {
	if organizerService == nil {
		return errors.New("organizer service not configured")
	}

	cmd.Println("Organising notes...")

	report, err := organizeWithProgress(context.Background(), cmd, organizerService)
	if err != nil {
		return fmt.Errorf("organise failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}

// organizeWithProgress runs the pass while displaying progress updates.
func organizeWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	organizer driving.Organizer,
) (*driving.PassReport, error) {
	type result struct {
		report *driving.PassReport
		err    error
	}

	// Start the pass in a goroutine
	resCh := make(chan result, 1)
	go func() {
		report, err := organizer.Organize(ctx, organizeLimit)
		resCh <- result{report, err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case res := <-resCh:
			return res.report, res.err
		case <-ticker.C:
			// Check progress (ignore status error - best effort)
			status, statusErr := organizer.Status(ctx)
			if statusErr == nil && status != nil && status.NotesProcessed > lastCount {
				cmd.Printf("\r%s... %d notes", status.Stage, status.NotesProcessed)
				lastCount = status.NotesProcessed
			}
		}
	}
}

func printReport(cmd *cobra.Command, report *driving.PassReport) {
	if report == nil {
		return
	}

	cmd.Println()
	cmd.Printf("Notes:    %d seen (%d new, %d modified, %d unchanged)\n",
		report.NotesSeen, report.NotesNew, report.NotesModified, report.NotesUnchanged)
	if report.ChunksStored > 0 || report.ChunksFailed > 0 {
		cmd.Printf("Chunks:   %d stored", report.ChunksStored)
		if report.ChunksFailed > 0 {
			cmd.Printf(" (%d without embedding)", report.ChunksFailed)
		}
		cmd.Println()
	}
	cmd.Printf("Topics:   %d clusters, %d uncategorized", report.Clusters, report.Outliers)
	if report.Reassigned > 0 {
		cmd.Printf(" (%d reassigned)", report.Reassigned)
	}
	cmd.Println()

	if report.NotesFailed > 0 {
		cmd.Printf("Failed:   %d notes will be retried next run\n", report.NotesFailed)
		for _, title := range report.FailedTitles {
			cmd.Printf("  - %s\n", title)
		}
	}
}
