package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/devcoach-ai/devcoach/internal/llm"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	embedding vector,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore persists documents in Postgres and delegates the
// similarity math to the pgvector extension's cosine operator.
type PostgresStore struct {
	embedder llm.Embedder
	pool     *pgxpool.Pool
}

// NewPostgresStore creates the documents table if needed and returns
// the store.
func NewPostgresStore(ctx context.Context, embedder llm.Embedder, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return &PostgresStore{embedder: embedder, pool: pool}, nil
}

func (s *PostgresStore) AddDocuments(ctx context.Context, docs []Document) error {
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

	for i, d := range docs {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO documents (content, metadata, embedding) VALUES ($1, $2, $3)`,
			d.Content, meta, pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SimilaritySearch(ctx context.Context, query string, k int, minScore float64) ([]Document, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	vec := pgvector.NewVector(queryVec)
	rows, err := s.pool.Query(ctx,
		`SELECT content, metadata
		 FROM documents
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, minScore, k,
	)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var content string
		var meta map[string]string
		if err := rows.Scan(&content, &meta); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		docs = append(docs, Document{Content: content, Metadata: meta})
	}
	return docs, rows.Err()
}

func (s *PostgresStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	vec := pgvector.NewVector(queryVec)
	rows, err := s.pool.Query(ctx,
		`SELECT content, metadata, 1 - (embedding <=> $1) AS similarity
		 FROM documents
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var scored []ScoredDocument
	for rows.Next() {
		var content string
		var meta map[string]string
		var similarity float64
		if err := rows.Scan(&content, &meta, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		scored = append(scored, ScoredDocument{
			Document: Document{Content: content, Metadata: meta},
			Score:    similarity,
		})
	}
	return scored, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return nil
}
