// Package file provides the TOML-backed settings store. Settings live
// at ~/.sema/config.toml and carry every tunable of the organise
// pipeline, so the core never reads configuration from hidden globals.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default tunables. These mirror the pipeline defaults so a missing
// config file behaves identically to an explicit default one.
const (
	DefaultChunkTokens    = 256
	MinChunkTokens        = 16
	DefaultOverlapTokens  = 32
	DefaultMinPoints      = 2
	DefaultEpsilon        = 0.5
	DefaultThreshold      = 0.65
	DefaultWorkers        = 4
	DefaultNoteTimeoutSec = 120
)

// Settings is the typed configuration of the sema CLI.
type Settings struct {
	// Source selects the note source: "filesystem" or "notion".
	Source SourceSettings `toml:"source"`

	// Embedding selects and configures the embedding provider.
	Embedding EmbeddingSettings `toml:"embedding"`

	// Chunking configures the token-bounded chunker.
	Chunking ChunkingSettings `toml:"chunking"`

	// Clustering configures the cluster engine and the outlier gate.
	Clustering ClusteringSettings `toml:"clustering"`

	// Pipeline configures fan-out and timeouts.
	Pipeline PipelineSettings `toml:"pipeline"`
}

// SourceSettings configures the note source.
type SourceSettings struct {
	// Type is "filesystem" or "notion".
	Type string `toml:"type"`

	// Path is the notes directory for the filesystem source.
	Path string `toml:"path"`

	// NotionToken is the integration token for the notion source.
	NotionToken string `toml:"notion_token"`

	// NotionDatabaseID is the database holding the notes.
	NotionDatabaseID string `toml:"notion_database_id"`
}

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// BaseURL overrides the provider's API endpoint.
	BaseURL string `toml:"base_url"`

	// APIKey authenticates the openai provider.
	APIKey string `toml:"api_key"`

	// Dimensions overrides the vector size where the model supports it.
	Dimensions int `toml:"dimensions"`

	// RatePerSecond throttles embedding calls. 0 disables throttling.
	RatePerSecond float64 `toml:"rate_per_second"`
}

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	// MaxTokens is the token budget per chunk.
	MaxTokens int `toml:"max_tokens"`

	// OverlapTokens is the overlap seeded from the previous chunk.
	OverlapTokens int `toml:"overlap_tokens"`

	// Encoding is the tiktoken encoding used for exact counting.
	Encoding string `toml:"encoding"`
}

// ClusteringSettings configures clustering and refinement.
type ClusteringSettings struct {
	// MinPoints is the DBSCAN density requirement.
	MinPoints int `toml:"min_points"`

	// Epsilon is the DBSCAN neighbourhood radius.
	Epsilon float64 `toml:"epsilon"`

	// ThresholdPolicy is "fixed" or "dynamic".
	ThresholdPolicy string `toml:"threshold_policy"`

	// QualityThreshold gates outlier reassignment under the fixed policy.
	QualityThreshold float64 `toml:"quality_threshold"`
}

// PipelineSettings configures pass execution.
type PipelineSettings struct {
	// Workers bounds the parallel fan-out.
	Workers int `toml:"workers"`

	// NoteTimeoutSeconds is the per-note processing deadline.
	NoteTimeoutSeconds int `toml:"note_timeout_seconds"`
}

// NoteTimeout returns the per-note deadline as a duration.
func (p PipelineSettings) NoteTimeout() time.Duration {
	return time.Duration(p.NoteTimeoutSeconds) * time.Second
}

// DefaultSettings returns settings with every tunable at its default.
func DefaultSettings() Settings {
	return Settings{
		Source:    SourceSettings{Type: "filesystem"},
		Embedding: EmbeddingSettings{Provider: "ollama"},
		Chunking: ChunkingSettings{
			MaxTokens:     DefaultChunkTokens,
			OverlapTokens: DefaultOverlapTokens,
		},
		Clustering: ClusteringSettings{
			MinPoints:        DefaultMinPoints,
			Epsilon:          DefaultEpsilon,
			ThresholdPolicy:  "fixed",
			QualityThreshold: DefaultThreshold,
		},
		Pipeline: PipelineSettings{
			Workers:            DefaultWorkers,
			NoteTimeoutSeconds: DefaultNoteTimeoutSec,
		},
	}
}

// SettingsStore loads and saves the TOML settings file.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
}

// NewSettingsStore creates a settings store. If configDir is empty,
// defaults to ~/.sema.
func NewSettingsStore(configDir string) (*SettingsStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".sema")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	return &SettingsStore{filePath: filepath.Join(configDir, "config.toml")}, nil
}

// Path returns the settings file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// Load reads settings from disk, filling absent values with defaults.
// A missing file yields pure defaults, not an error.
func (s *SettingsStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultSettings()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("reading settings: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("unmarshalling settings: %w", err)
	}

	applyDefaults(&settings)
	return settings, nil
}

// Save writes settings to disk.
func (s *SettingsStore) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// applyDefaults backfills zero values after a partial TOML file.
func applyDefaults(s *Settings) {
	if s.Source.Type == "" {
		s.Source.Type = "filesystem"
	}
	if s.Embedding.Provider == "" {
		s.Embedding.Provider = "ollama"
	}
	if s.Chunking.MaxTokens <= 0 {
		s.Chunking.MaxTokens = DefaultChunkTokens
	}
	// Budgets this small degenerate into per-word chunks.
	if s.Chunking.MaxTokens < MinChunkTokens {
		s.Chunking.MaxTokens = MinChunkTokens
	}
	if s.Chunking.OverlapTokens < 0 {
		s.Chunking.OverlapTokens = DefaultOverlapTokens
	}
	if s.Clustering.MinPoints <= 0 {
		s.Clustering.MinPoints = DefaultMinPoints
	}
	if s.Clustering.Epsilon <= 0 {
		s.Clustering.Epsilon = DefaultEpsilon
	}
	if s.Clustering.ThresholdPolicy == "" {
		s.Clustering.ThresholdPolicy = "fixed"
	}
	if s.Clustering.QualityThreshold <= 0 {
		s.Clustering.QualityThreshold = DefaultThreshold
	}
	if s.Pipeline.Workers <= 0 {
		s.Pipeline.Workers = DefaultWorkers
	}
	if s.Pipeline.NoteTimeoutSeconds <= 0 {
		s.Pipeline.NoteTimeoutSeconds = DefaultNoteTimeoutSec
	}
}
