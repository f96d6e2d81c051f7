package similarity

import (
	"context"
	"hash/fnv"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confecoes-lanca/prospector/internal/catalog"
	"github.com/confecoes-lanca/prospector/internal/model"
)

// hashEmbedder is a deterministic fake embedder: similar prefixes produce
// similar vectors, so relative ordering is stable across runs.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 16)
	for i, tok := range []byte(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte{tok, byte(i % 7)})
		vec[int(h.Sum32())%len(vec)] += 1
	}
	return vec, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, eris.New("embedding service unavailable")
}

func TestEmbedAndStore(t *testing.T) {
	ix := NewIndex(NewMemoryStore(), hashEmbedder{})

	status, count, err := ix.EmbedAndStore(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "success", status)
	assert.Equal(t, catalog.Count(), count)

	// Second call is a no-op without force.
	status, count, err = ix.EmbedAndStore(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "already_populated", status)
	assert.Equal(t, catalog.Count(), count)

	// force does a full replace.
	status, _, err = ix.EmbedAndStore(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "success", status)
}

func TestFindSimilarSelfHeals(t *testing.T) {
	store := NewMemoryStore()
	ix := NewIndex(store, hashEmbedder{})

	// Empty store: FindSimilar populates before searching.
	matches, err := ix.FindSimilar(context.Background(), "British heritage menswear brand with shirts and suits", 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	n, _ := store.CountReferenceEmbeddings(context.Background())
	assert.Equal(t, catalog.Count(), n)

	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Similarity, 0.0)
		assert.LessOrEqual(t, m.Similarity, 100.0)
		assert.NotEmpty(t, m.ProfileText)
	}
}

func TestFindSimilarOrdering(t *testing.T) {
	ix := NewIndex(NewMemoryStore(), hashEmbedder{})
	_, _, err := ix.EmbedAndStore(context.Background(), false)
	require.NoError(t, err)

	matches, err := ix.FindSimilar(context.Background(), "small boutique selling premium suits", 5)
	require.NoError(t, err)
	require.Len(t, matches, 5)

	// Monotonic: ascending distance means descending similarity.
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
	}
}

func TestFindSimilarEmbedderFailure(t *testing.T) {
	ix := NewIndex(NewMemoryStore(), failingEmbedder{})
	_, err := ix.FindSimilar(context.Background(), "anything", 1)
	assert.Error(t, err, "embedding failures propagate, no fallback")
}

func TestCosineDistance(t *testing.T) {
	a := []float32{1, 0, 0}
	assert.InDelta(t, 0, CosineDistance(a, a), 1e-9)
	assert.InDelta(t, 1, CosineDistance(a, []float32{0, 1, 0}), 1e-9)
	assert.InDelta(t, 2, CosineDistance(a, []float32{-1, 0, 0}), 1e-9)
	assert.Equal(t, 1.0, CosineDistance(a, []float32{0, 0, 0}), "zero vector is maximally distant")
}

func TestMemoryStoreNearestLimit(t *testing.T) {
	store := NewMemoryStore()
	rows := []model.ReferenceEmbedding{
		{ID: "client_0", Vector: []float32{1, 0}},
		{ID: "client_1", Vector: []float32{0, 1}},
		{ID: "client_2", Vector: []float32{1, 1}},
	}
	require.NoError(t, store.ReplaceReferenceEmbeddings(context.Background(), rows))

	got, err := store.NearestReferenceClients(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "client_0", got[0].Ref.ID)
}
