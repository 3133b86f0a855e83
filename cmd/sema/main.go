// Command sema organises notes into semantic topic clusters.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/sema-cli/internal/adapters/driven/cache/file"
	configfile "github.com/custodia-labs/sema-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sema-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/sema-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sema-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sema-cli/internal/adapters/driven/tokenizer/tiktoken"
	"github.com/custodia-labs/sema-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/sema-cli/internal/connectors/filesystem"
	"github.com/custodia-labs/sema-cli/internal/connectors/notion"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
	"github.com/custodia-labs/sema-cli/internal/core/services"
	"github.com/custodia-labs/sema-cli/internal/logger"
	"github.com/custodia-labs/sema-cli/internal/postprocessors/chunker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settingsStore, err := configfile.NewSettingsStore("")
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}

	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("open chunk store: %w", err)
	}
	defer store.Close()

	snapshots, err := file.NewSnapshotStore("")
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}

	// Source and embedder are optional at startup so that 'config init'
	// and read-only commands work before anything is configured.
	var embedder driven.EmbeddingService
	if e, err := buildEmbedder(settings); err != nil {
		logger.Warn("embedding provider unavailable: %v", err)
	} else {
		embedder = e
		defer embedder.Close()
	}

	var organizer driving.Organizer
	if source, err := buildSource(settings); err != nil {
		logger.Warn("note source unavailable: %v", err)
	} else {
		defer source.Close()

		counter := tiktoken.NewCounter(settings.Chunking.Encoding)
		chunkProc := chunker.New(counter,
			chunker.WithMaxTokens(settings.Chunking.MaxTokens),
			chunker.WithOverlap(settings.Chunking.OverlapTokens),
		)

		organizer = services.NewPipeline(source, embedder, chunkProc, store, snapshots, services.PipelineConfig{
			MinPoints: settings.Clustering.MinPoints,
			Epsilon:   settings.Clustering.Epsilon,
			Refine: services.RefineConfig{
				Policy:    services.ThresholdPolicy(settings.Clustering.ThresholdPolicy),
				Threshold: settings.Clustering.QualityThreshold,
			},
			Workers:     settings.Pipeline.Workers,
			NoteTimeout: settings.Pipeline.NoteTimeout(),
			EmbedRate:   settings.Embedding.RatePerSecond,
		})
	}

	cli.SetServices(cli.Services{
		Organizer: organizer,
		Topics:    services.NewTopicService(store, embedder),
		Settings:  settingsStore,
	})

	return cli.Execute()
}

// buildSource constructs the configured note source.
func buildSource(settings configfile.Settings) (driven.NoteSource, error) {
	switch settings.Source.Type {
	case "filesystem":
		if settings.Source.Path == "" {
			return nil, fmt.Errorf("source.path is not set; run 'sema config init' and edit the config")
		}
		return filesystem.New(settings.Source.Path), nil
	case "notion":
		return notion.New(settings.Source.NotionToken, settings.Source.NotionDatabaseID), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", settings.Source.Type)
	}
}

// buildEmbedder constructs the configured embedding provider.
func buildEmbedder(settings configfile.Settings) (driven.EmbeddingService, error) {
	switch settings.Embedding.Provider {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    settings.Embedding.BaseURL,
			Model:      settings.Embedding.Model,
			Dimensions: settings.Embedding.Dimensions,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     settings.Embedding.APIKey,
			BaseURL:    settings.Embedding.BaseURL,
			Model:      settings.Embedding.Model,
			Dimensions: settings.Embedding.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", settings.Embedding.Provider)
	}
}
