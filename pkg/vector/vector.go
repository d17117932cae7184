// Package vector defines the vector-database boundary used by the skill
// library's qdrant backend.
package vector

import "context"

// VectorStore defines the persistence interface for the skill library's
// vector backend. Similarity ranking stays in the registry: retrieval is
// restricted to the active set with deterministic tie-breaks, which a remote
// ranking could not guarantee.
type VectorStore interface {
	// Upsert adds or updates points in the vector store.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Scroll pages through all points in a collection, vectors included.
	Scroll(ctx context.Context, collection string, limit int) ([]Point, error)
	// Delete removes points by ID.
	Delete(ctx context.Context, collection string, ids []string) error
	// CreateCollection creates a new collection if it doesn't exist.
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
}

// Point represents a data point in the vector store.
type Point struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}
