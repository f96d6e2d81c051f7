// Package similarity matches prospect descriptions against the embedded
// reference client catalogue using cosine nearest-neighbor search.
package similarity

import (
	"context"
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/catalog"
	"github.com/confecoes-lanca/prospector/internal/model"
)

// Embedder computes a dense vector for a piece of text. Embedding failures
// are hard errors: there is no fallback vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Neighbor is one stored reference embedding with its cosine distance to a
// query vector, ordered ascending by the store.
type Neighbor struct {
	Ref            model.ReferenceEmbedding
	CosineDistance float64
}

// VectorStore is the persistence surface the index needs. Implemented by the
// Postgres (pgvector), SQLite and in-memory stores.
type VectorStore interface {
	CountReferenceEmbeddings(ctx context.Context) (int, error)
	ReplaceReferenceEmbeddings(ctx context.Context, rows []model.ReferenceEmbedding) error
	NearestReferenceClients(ctx context.Context, vec []float32, n int) ([]Neighbor, error)
}

// Match is one similar reference client, similarity expressed as a 0-100
// percentage rounded to two decimals.
type Match struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Country     string                   `json:"country"`
	Similarity  float64                  `json:"similarity"`
	Metadata    model.ReferenceEmbedding `json:"metadata"`
	ProfileText string                   `json:"profile_text"`
}

// Index embeds reference clients once (persisted) and prospect descriptions
// transiently. A refresh is mutually exclusive with concurrent searches.
type Index struct {
	store    VectorStore
	embedder Embedder
	mu       sync.RWMutex
}

// NewIndex creates an Index over the given store and embedder.
func NewIndex(store VectorStore, embedder Embedder) *Index {
	return &Index{store: store, embedder: embedder}
}

// EmbedAndStore populates the reference embedding store from the catalogue.
// When the store already holds the full catalogue and force is false it is a
// no-op (status "already_populated"). force replaces all rows wholesale.
func (ix *Index) EmbedAndStore(ctx context.Context, force bool) (status string, count int, err error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.embedAndStoreLocked(ctx, force)
}

func (ix *Index) embedAndStoreLocked(ctx context.Context, force bool) (string, int, error) {
	existing, err := ix.store.CountReferenceEmbeddings(ctx)
	if err != nil {
		return "", 0, eris.Wrap(err, "similarity: count reference embeddings")
	}
	if existing >= catalog.Count() && !force {
		return "already_populated", existing, nil
	}

	clients := catalog.Clients()
	rows := make([]model.ReferenceEmbedding, 0, len(clients))
	for i, c := range clients {
		profile := catalog.ClientProfileText(c)
		vec, err := ix.embedder.Embed(ctx, profile)
		if err != nil {
			return "", 0, eris.Wrapf(err, "similarity: embed reference client %s", c.Name)
		}
		rows = append(rows, model.ReferenceEmbedding{
			ID:            catalog.ClientID(i),
			Name:          c.Name,
			Country:       c.Country,
			CountryCode:   c.CountryCode,
			City:          c.City,
			StoreCount:    c.StoreCount,
			BrandStyle:    c.BrandStyle,
			BusinessModel: c.BusinessModel,
			ProfileText:   profile,
			Vector:        vec,
		})
	}

	if err := ix.store.ReplaceReferenceEmbeddings(ctx, rows); err != nil {
		return "", 0, eris.Wrap(err, "similarity: replace reference embeddings")
	}

	zap.L().Info("similarity: reference embeddings populated",
		zap.Int("count", len(rows)),
		zap.Bool("force", force),
	)
	return "success", len(rows), nil
}

// FindSimilar embeds description transiently (never persisted) and returns
// the n nearest reference clients by ascending cosine distance. An empty
// reference store is populated automatically before searching.
func (ix *Index) FindSimilar(ctx context.Context, description string, n int) ([]Match, error) {
	ix.mu.RLock()
	count, err := ix.store.CountReferenceEmbeddings(ctx)
	ix.mu.RUnlock()
	if err != nil {
		return nil, eris.Wrap(err, "similarity: count reference embeddings")
	}
	if count == 0 {
		ix.mu.Lock()
		_, _, err = ix.embedAndStoreLocked(ctx, false)
		ix.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	vec, err := ix.embedder.Embed(ctx, description)
	if err != nil {
		return nil, eris.Wrap(err, "similarity: embed query")
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	neighbors, err := ix.store.NearestReferenceClients(ctx, vec, n)
	if err != nil {
		return nil, eris.Wrap(err, "similarity: nearest neighbors")
	}

	matches := make([]Match, 0, len(neighbors))
	for _, nb := range neighbors {
		matches = append(matches, Match{
			ID:          nb.Ref.ID,
			Name:        nb.Ref.Name,
			Country:     nb.Ref.Country,
			Similarity:  round2((1 - nb.CosineDistance) * 100),
			Metadata:    nb.Ref,
			ProfileText: nb.Ref.ProfileText,
		})
	}
	return matches, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CosineDistance returns 1 - cosine similarity of a and b. Zero-magnitude
// vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
