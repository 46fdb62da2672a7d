// Package rag loads reference documents, splits them into overlapping
// chunks and retrieves the ones relevant to a user query.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/devcoach-ai/devcoach/internal/vectorstore"
)

// loadableExtensions are the file types picked up from the docs directory.
var loadableExtensions = map[string]bool{".md": true, ".txt": true}

// Loader reads reference documents from a directory and feeds the
// chunks into the vector store.
type Loader struct {
	store    vectorstore.Store
	splitter *Splitter
}

// NewLoader creates a loader with the default chunking parameters.
func NewLoader(store vectorstore.Store) *Loader {
	return &Loader{
		store:    store,
		splitter: NewSplitter(DefaultChunkSize, DefaultOverlap),
	}
}

// LoadFromDirectory reads markdown and plain-text files directly under
// dir (non-recursive), splits them and stores the chunks. It returns
// the number of chunks produced. A missing directory yields 0 without
// an error; unreadable files are skipped.
func (l *Loader) LoadFromDirectory(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("rag: documents directory not found", "dir", dir, "error", err)
		return 0, nil
	}

	var chunks []vectorstore.Document
	loadedFiles := 0
	for _, entry := range entries {
		if entry.IsDir() || !loadableExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("rag: failed to read document", "file", entry.Name(), "error", err)
			continue
		}
		loadedFiles++

		// The file name is prepended to every chunk so queries that
		// mention the document title match its chunks.
		for _, chunk := range l.splitter.Split(string(content)) {
			chunks = append(chunks, vectorstore.Document{
				Content: entry.Name() + "\n" + chunk,
				Metadata: map[string]string{
					"source":    path,
					"file_name": entry.Name(),
				},
			})
		}
	}

	if len(chunks) == 0 {
		slog.Warn("rag: no loadable documents found", "dir", dir)
		return 0, nil
	}
	if err := l.store.AddDocuments(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing document chunks: %w", err)
	}

	slog.Info("rag: documents loaded", "files", loadedFiles, "chunks", len(chunks))
	return len(chunks), nil
}

// ReloadFromDirectory clears the store and loads the directory fresh,
// so repeated reloads do not accumulate duplicate chunks.
func (l *Loader) ReloadFromDirectory(ctx context.Context, dir string) (int, error) {
	if err := l.store.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clearing document store: %w", err)
	}
	return l.LoadFromDirectory(ctx, dir)
}
