// Package cli provides the sema command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sema-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
	"github.com/custodia-labs/sema-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Injected services. Set once by SetServices before Execute.
var (
	organizerService driving.Organizer
	topicService     driving.TopicService
	settingsStore    *file.SettingsStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sema",
	Short: "Organise your notes into semantic topics",
	Long: `Sema indexes your notes, embeds them and groups them into
named topic clusters. Notes that fit no topic land in an
Uncategorized group.

Run 'sema organize' to index and cluster your notes, then
'sema topics' to see the result.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Services aggregates everything the CLI commands need.
type Services struct {
	Organizer driving.Organizer
	Topics    driving.TopicService
	Settings  *file.SettingsStore
}

// SetServices injects the services the commands run against.
func SetServices(s Services) {
	organizerService = s.Organizer
	topicService = s.Topics
	settingsStore = s.Settings
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
