package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/devcoach-ai/devcoach/internal/llm"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL,
	metadata TEXT,
	embedding TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);
`

// SQLiteStore persists documents in a local SQLite table. Metadata and
// embeddings are stored as JSON text; queries still run a linear scan
// in Go, so the contract matches MemoryStore exactly.
type SQLiteStore struct {
	embedder llm.Embedder
	db       *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. If the file
// cannot be opened it falls back to an in-process SQLite database so a
// broken data directory never blocks startup.
func NewSQLiteStore(embedder llm.Embedder, path string) (*SQLiteStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		slog.Warn("vectorstore: falling back to in-memory sqlite", "path", path, "error", err)
		db, err = openSQLite(":memory:")
		if err != nil {
			return nil, fmt.Errorf("opening fallback sqlite: %w", err)
		}
	}
	return &SQLiteStore{embedder: embedder, db: db}, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return db, nil
}

func (s *SQLiteStore) AddDocuments(ctx context.Context, docs []Document) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (content, metadata, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range docs {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
		vec, err := json.Marshal(embeddings[i])
		if err != nil {
			return fmt.Errorf("marshaling embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, d.Content, string(meta), string(vec)); err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SimilaritySearch(ctx context.Context, query string, k int, minScore float64) ([]Document, error) {
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

func (s *SQLiteStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	scored, err := s.scan(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *SQLiteStore) scan(ctx context.Context, query string) ([]ScoredDocument, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT content, metadata, embedding FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("scanning documents: %w", err)
	}
	defer rows.Close()

	var scored []ScoredDocument
	for rows.Next() {
		var content string
		var metaJSON, vecJSON sql.NullString
		if err := rows.Scan(&content, &metaJSON, &vecJSON); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}

		meta := map[string]string{}
		if metaJSON.Valid && metaJSON.String != "" {
			_ = json.Unmarshal([]byte(metaJSON.String), &meta)
		}
		var vec []float32
		if vecJSON.Valid {
			if err := json.Unmarshal([]byte(vecJSON.String), &vec); err != nil {
				continue // skip rows with corrupt embeddings
			}
		}

		scored = append(scored, ScoredDocument{
			Document: Document{Content: content, Metadata: meta},
			Score:    CosineSimilarity(queryVec, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
