package similarity

import (
	"context"
	"sort"
	"sync"

	"github.com/confecoes-lanca/prospector/internal/model"
)

// MemoryStore is a brute-force in-process VectorStore. It backs tests and
// runs without a database; the cosine scan is fine for a catalogue of 18.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []model.ReferenceEmbedding
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// CountReferenceEmbeddings implements VectorStore.
func (m *MemoryStore) CountReferenceEmbeddings(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows), nil
}

// ReplaceReferenceEmbeddings implements VectorStore with a full swap.
func (m *MemoryStore) ReplaceReferenceEmbeddings(_ context.Context, rows []model.ReferenceEmbedding) error {
	next := make([]model.ReferenceEmbedding, len(rows))
	copy(next, rows)
	m.mu.Lock()
	m.rows = next
	m.mu.Unlock()
	return nil
}

// NearestReferenceClients implements VectorStore by scanning all rows and
// sorting by ascending cosine distance.
func (m *MemoryStore) NearestReferenceClients(_ context.Context, vec []float32, n int) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	neighbors := make([]Neighbor, 0, len(m.rows))
	for _, r := range m.rows {
		neighbors = append(neighbors, Neighbor{
			Ref:            r,
			CosineDistance: CosineDistance(r.Vector, vec),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].CosineDistance < neighbors[j].CosineDistance
	})
	if n > 0 && n < len(neighbors) {
		neighbors = neighbors[:n]
	}
	return neighbors, nil
}
