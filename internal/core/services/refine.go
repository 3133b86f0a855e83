package services

import (
	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/logger"
)

// DefaultQualityThreshold is the fixed reassignment gate. Empirically
// chosen: below it, spatially adjacent but topically unrelated notes
// get pulled into clusters and coherence degrades.
const DefaultQualityThreshold = 0.65

// ThresholdPolicy selects how the reassignment gate is derived.
// Exactly one policy applies within a run.
type ThresholdPolicy string

const (
	// ThresholdFixed gates on a constant quality score.
	ThresholdFixed ThresholdPolicy = "fixed"

	// ThresholdDynamic gates on the mean quality score observed across
	// all outliers in the current run, adapting to the semantic spread
	// of the corpus.
	ThresholdDynamic ThresholdPolicy = "dynamic"
)

// RefineConfig configures outlier refinement.
type RefineConfig struct {
	// Policy selects fixed or dynamic thresholding.
	Policy ThresholdPolicy

	// Threshold is the gate used by the fixed policy.
	Threshold float64
}

// Refine re-evaluates every outlier against the existing clusters.
// For each outlier it finds the nearest cluster centroid by Euclidean
// distance, then computes a quality score: cosine similarity mapped
// from [-1, 1] to [0, 1]. The outlier joins the nearest cluster only
// when the score passes the gate; proximity alone is necessary but not
// sufficient.
//
// Rounds repeat, with centroids recomputed from the updated labels,
// until a round reassigns nothing. The output is therefore a fixed
// point: running Refine on its own result changes nothing. The dynamic
// gate is strict, otherwise each round's shrinking candidate pool would
// lower the mean until every outlier was absorbed.
func Refine(
	labels map[string]domain.ClusterLabel,
	points []domain.NoteEmbedding,
	cfg RefineConfig,
) map[string]domain.ClusterLabel {
	if cfg.Policy == "" {
		cfg.Policy = ThresholdFixed
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultQualityThreshold
	}

	result := make(map[string]domain.ClusterLabel, len(labels))
	for k, v := range labels {
		result[k] = v
	}

	total := 0
	for {
		n := refineRound(result, points, cfg)
		if n == 0 {
			break
		}
		total += n
	}

	logger.Debug("Refinement: %d outliers reassigned (policy %s)", total, cfg.Policy)
	return result
}

// refineRound runs a single reassignment round over labels in place and
// returns how many outliers joined a cluster.
func refineRound(
	labels map[string]domain.ClusterLabel,
	points []domain.NoteEmbedding,
	cfg RefineConfig,
) int {
	byCluster := make(map[domain.ClusterLabel][][]float32)
	for _, p := range points {
		label, ok := labels[p.NoteKey.String()]
		if !ok || label == domain.Outlier {
			continue
		}
		byCluster[label] = append(byCluster[label], p.Vector)
	}
	if len(byCluster) == 0 {
		return 0
	}

	centroids := make(map[domain.ClusterLabel][]float32, len(byCluster))
	for id, vectors := range byCluster {
		centroids[id] = centroid(vectors)
	}

	type candidate struct {
		key     string
		nearest domain.ClusterLabel
		quality float64
	}

	var candidates []candidate
	for _, p := range points {
		if labels[p.NoteKey.String()] != domain.Outlier {
			continue
		}

		nearest := domain.Outlier
		best := 0.0
		for id, c := range centroids {
			d := euclidean(p.Vector, c)
			if nearest == domain.Outlier || d < best {
				nearest = id
				best = d
			}
		}
		if nearest == domain.Outlier {
			continue
		}

		quality := (cosine(p.Vector, centroids[nearest]) + 1) / 2
		candidates = append(candidates, candidate{key: p.NoteKey.String(), nearest: nearest, quality: quality})
	}

	threshold := cfg.Threshold
	if cfg.Policy == ThresholdDynamic && len(candidates) > 0 {
		sum := 0.0
		for _, c := range candidates {
			sum += c.quality
		}
		threshold = sum / float64(len(candidates))
	}

	reassigned := 0
	for _, c := range candidates {
		pass := c.quality >= threshold
		if cfg.Policy == ThresholdDynamic {
			pass = c.quality > threshold
		}
		if pass {
			labels[c.key] = c.nearest
			reassigned++
		}
	}
	return reassigned
}
