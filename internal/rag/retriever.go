package rag

import (
	"context"
	"log/slog"

	"github.com/devcoach-ai/devcoach/internal/vectorstore"
)

// Retriever wraps the vector store for the chat path. Retrieval
// failures degrade to "no extra context" so they never block a
// response.
type Retriever struct {
	store    vectorstore.Store
	topK     int
	minScore float64
}

// NewRetriever creates a retriever with the default top-k and score
// threshold.
func NewRetriever(store vectorstore.Store) *Retriever {
	return &Retriever{
		store:    store,
		topK:     vectorstore.DefaultTopK,
		minScore: vectorstore.DefaultMinScore,
	}
}

// Retrieve returns the chunks relevant to query, or nil when nothing
// scores above the threshold or the store/embedder fails.
func (r *Retriever) Retrieve(ctx context.Context, query string) []vectorstore.Document {
	docs, err := r.store.SimilaritySearch(ctx, query, r.topK, r.minScore)
	if err != nil {
		slog.Warn("rag: retrieval failed, continuing without context", "error", err)
		return nil
	}
	return docs
}
