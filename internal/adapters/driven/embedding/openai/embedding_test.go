package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embedServer returns a test server answering /embeddings with the
// given response items.
func embedServer(t *testing.T, items ...embedItem) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_ = json.NewEncoder(w).Encode(embedResponse{Data: items})
	}))
}

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "sk-test"})

	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())
}

func TestNewEmbeddingService_LargeModelDimensions(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", Model: "text-embedding-3-large"})

	require.NoError(t, err)
	assert.Equal(t, 3072, svc.Dimensions())
}

func TestEmbedBatch_ReassemblesByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)

		// Returned out of order to exercise index-based reassembly.
		_ = json.NewEncoder(w).Encode(embedResponse{Data: []embedItem{
			{Embedding: []float64{0, 1}, Index: 1},
			{Embedding: []float64{1, 0}, Index: 0},
		}})
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.InDelta(t, 1.0, embeddings[0][0], 1e-6)
	assert.InDelta(t, 1.0, embeddings[1][1], 1e-6)
}

func TestEmbedBatch_RejectsOutOfRangeIndex(t *testing.T) {
	server := embedServer(t, embedItem{Embedding: []float64{1, 0}, Index: 7})
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"only one"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 7 outside batch of 1")
}

func TestEmbedBatch_RejectsDimensionMismatch(t *testing.T) {
	server := embedServer(t, embedItem{Embedding: []float64{1, 0, 0}, Index: 0})
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"only one"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 3 dimensions, expected 2")
}

func TestEmbedBatch_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"anything"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "sk-test"})
	require.NoError(t, err)

	embeddings, err := svc.EmbedBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, embeddings)
}

func TestEmbed_Single(t *testing.T) {
	server := embedServer(t, embedItem{Embedding: []float64{0.5, 0.5}, Index: 0})
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	embedding, err := svc.Embed(context.Background(), "budget notes")

	require.NoError(t, err)
	require.Len(t, embedding, 2)
	assert.InDelta(t, 0.5, embedding[0], 1e-6)
}

func TestEmbed_MissingVector(t *testing.T) {
	// A 200 response with no data leaves the batch slot nil.
	server := embedServer(t)
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding returned")
}
