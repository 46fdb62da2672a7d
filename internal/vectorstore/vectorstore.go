// Package vectorstore stores text chunks with their embedding vectors
// and answers cosine-similarity top-k queries. Three backends share one
// contract: an in-process slice, a SQLite table and a Postgres table
// with the pgvector extension.
package vectorstore

import "context"

// Document is a chunk of text with its provenance metadata.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScoredDocument pairs a document with its similarity score.
type ScoredDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Search defaults.
const (
	DefaultTopK     = 5
	DefaultMinScore = 0.75
)

// Store holds embedded documents and serves similarity queries.
// Results are sorted by descending cosine similarity.
type Store interface {
	// AddDocuments embeds each document's content and stores it.
	AddDocuments(ctx context.Context, docs []Document) error
	// SimilaritySearch returns at most k documents scoring >= minScore.
	SimilaritySearch(ctx context.Context, query string, k int, minScore float64) ([]Document, error)
	// SimilaritySearchWithScore returns the top k documents with their
	// scores, unfiltered by score.
	SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]ScoredDocument, error)
	// Count reports the number of stored documents.
	Count(ctx context.Context) (int, error)
	// Clear removes all documents.
	Clear(ctx context.Context) error
}
