package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "conv-1", "user", "what is a goroutine?"))
	require.NoError(t, s.Append(ctx, "conv-1", "assistant", "a lightweight thread"))
	require.NoError(t, s.Append(ctx, "conv-2", "user", "unrelated"))

	entries, err := s.List(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "what is a goroutine?", entries[0].Content)
	assert.Equal(t, "assistant", entries[1].Role)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestListUnknownConversationIsEmpty(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.List(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "conv-1", "user", "persisted?"))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.List(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "persisted?", entries[0].Content)
}
