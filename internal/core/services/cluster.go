package services

import (
	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/logger"
)

// Recommended parameter ranges. The engine never clamps caller-supplied
// values; these are documentation, not enforcement.
//
// minPoints 2-4 works well for personal note collections; epsilon
// depends on the embedding model and is typically found between 0.3
// and 1.0 for normalised 768-d vectors.
const (
	DefaultMinPoints = 2
	DefaultEpsilon   = 0.5
)

// Cluster runs density-based clustering (DBSCAN) over note embeddings.
// A point is a core point when at least minPoints other points lie
// within Euclidean distance epsilon; clusters form by transitively
// connecting core points with their neighbours. Points reachable from
// no core point are labelled domain.Outlier.
//
// Labels are keyed by NoteKey.String(). Cluster ids are assigned in
// discovery order starting at 0, so the same input ordering yields the
// same labelling; across orderings the partition is stable even when
// the numbering is not.
func Cluster(points []domain.NoteEmbedding, minPoints int, epsilon float64) map[string]domain.ClusterLabel {
	labels := make(map[string]domain.ClusterLabel, len(points))
	if len(points) == 0 {
		return labels
	}

	const unvisited = -2
	state := make([]int, len(points))
	for i := range state {
		state[i] = unvisited
	}

	neighbours := func(idx int) []int {
		var hits []int
		for j := range points {
			if j == idx {
				continue
			}
			if euclidean(points[idx].Vector, points[j].Vector) <= epsilon {
				hits = append(hits, j)
			}
		}
		return hits
	}

	nextID := 0
	for i := range points {
		if state[i] != unvisited {
			continue
		}

		hood := neighbours(i)
		if len(hood) < minPoints {
			state[i] = domain.Outlier
			continue
		}

		// Expand a new cluster from this core point.
		id := nextID
		nextID++
		state[i] = id

		queue := append([]int(nil), hood...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if state[j] == domain.Outlier {
				// Border point previously marked outlier: reachable now.
				state[j] = id
			}
			if state[j] != unvisited {
				continue
			}
			state[j] = id

			jHood := neighbours(j)
			if len(jHood) >= minPoints {
				queue = append(queue, jHood...)
			}
		}
	}

	outliers := 0
	for i, point := range points {
		labels[point.NoteKey.String()] = state[i]
		if state[i] == domain.Outlier {
			outliers++
		}
	}

	logger.Debug("Clustering: %d points, %d clusters, %d outliers", len(points), nextID, outliers)
	return labels
}
