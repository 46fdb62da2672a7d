package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/devcoach-ai/devcoach/internal/llm"
)

type memoryRecord struct {
	doc       Document
	embedding []float32
}

// MemoryStore keeps documents in a process-local slice and answers
// queries with a full linear scan. O(n*d) per query; fine for a small
// document corpus.
type MemoryStore struct {
	embedder llm.Embedder

	mu       sync.RWMutex
	records  []memoryRecord
	warnOnce sync.Once
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(embedder llm.Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

func (s *MemoryStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding documents: got %d vectors for %d documents", len(embeddings), len(docs))
	}

	s.mu.Lock()
	for i, d := range docs {
		s.records = append(s.records, memoryRecord{doc: d, embedding: embeddings[i]})
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SimilaritySearch(ctx context.Context, query string, k int, minScore float64) ([]Document, error) {
	scored, err := s.scan(ctx, query)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, k)
	for _, sd := range scored {
		if sd.Score < minScore {
			continue
		}
		docs = append(docs, sd.Document)
		if len(docs) == k {
			break
		}
	}
	return docs, nil
}

func (s *MemoryStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	scored, err := s.scan(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// scan embeds the query and scores every record, sorted best first.
func (s *MemoryStore) scan(ctx context.Context, query string) ([]ScoredDocument, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	scored := make([]ScoredDocument, 0, len(s.records))
	for _, rec := range s.records {
		if len(rec.embedding) != len(queryVec) {
			dims := [2]int{len(rec.embedding), len(queryVec)}
			s.warnOnce.Do(func() {
				slog.Warn("vectorstore: embedding dimension mismatch, scoring as 0",
					"stored_dim", dims[0], "query_dim", dims[1])
			})
		}
		scored = append(scored, ScoredDocument{
			Document: rec.doc,
			Score:    CosineSimilarity(queryVec, rec.embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
	return nil
}
