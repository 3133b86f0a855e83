package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sema-cli/internal/adapters/driving/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse topics interactively",
	Long: `Opens an interactive terminal browser over the organised topics.
Navigate topics with j/k, expand a topic with enter to see its member
notes, and open Search from the menu to query your notes.`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	if topicService == nil {
		return errors.New("topic service not configured")
	}

	app, err := tui.NewApp(&tui.Ports{
		Topics:    topicService,
		Organizer: organizerService,
	})
	if err != nil {
		return err
	}

	return app.WithContext(cmd.Context()).Run()
}
