package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEuclidean(t *testing.T) {
	t.Run("identical vectors have distance zero", func(t *testing.T) {
		assert.Zero(t, euclidean([]float32{1, 2, 3}, []float32{1, 2, 3}))
	})

	t.Run("classic 3-4-5 triangle", func(t *testing.T) {
		assert.InDelta(t, 5.0, euclidean([]float32{0, 0}, []float32{3, 4}), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := []float32{0.2, -0.4, 1.1}
		b := []float32{-0.7, 0.9, 0.3}
		assert.Equal(t, euclidean(a, b), euclidean(b, a))
	})
}

func TestCosine(t *testing.T) {
	t.Run("parallel vectors are 1", func(t *testing.T) {
		assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	})

	t.Run("orthogonal vectors are 0", func(t *testing.T) {
		assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("opposed vectors are -1", func(t *testing.T) {
		assert.InDelta(t, -1.0, cosine([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	})

	t.Run("zero vector yields 0 not NaN", func(t *testing.T) {
		sim := cosine([]float32{0, 0}, []float32{1, 1})
		assert.False(t, math.IsNaN(sim))
		assert.Zero(t, sim)
	})
}

func TestCentroid(t *testing.T) {
	t.Run("mean of two vectors", func(t *testing.T) {
		c := centroid([][]float32{{1, 2}, {3, 4}})
		assert.Equal(t, []float32{2, 3}, c)
	})

	t.Run("single vector is its own centroid", func(t *testing.T) {
		c := centroid([][]float32{{0.5, -0.5}})
		assert.Equal(t, []float32{0.5, -0.5}, c)
	})

	t.Run("empty input is nil", func(t *testing.T) {
		assert.Nil(t, centroid(nil))
	})

	t.Run("three vectors", func(t *testing.T) {
		c := centroid([][]float32{{0, 0, 3}, {3, 0, 0}, {0, 3, 0}})
		require.Len(t, c, 3)
		for i := range c {
			assert.InDelta(t, 1.0, float64(c[i]), 1e-6)
		}
	})
}
