package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_AppendAndHistory(t *testing.T) {
	store := NewInMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "1", Turn{Role: RoleUser, Content: "Hello"}))
	require.NoError(t, store.Append(ctx, "1", Turn{Role: RoleAssistant, Content: "Hi there!"}))

	turns, err := store.History(ctx, "1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "Hello", turns[0].Content)
	assert.Equal(t, RoleAssistant, turns[1].Role)
}

func TestInMemoryStore_CapEvictsOldest(t *testing.T) {
	store := NewInMemoryStore(10)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		require.NoError(t, store.Append(ctx, "1", Turn{Role: RoleUser, Content: fmt.Sprintf("msg-%d", i)}))
	}

	turns, err := store.History(ctx, "1")
	require.NoError(t, err)
	require.Len(t, turns, 10)
	assert.Equal(t, "msg-5", turns[0].Content)
	assert.Equal(t, "msg-14", turns[9].Content)
}

func TestInMemoryStore_MultiAppendRespectsCap(t *testing.T) {
	store := NewInMemoryStore(3)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "1",
		Turn{Role: RoleUser, Content: "a"},
		Turn{Role: RoleAssistant, Content: "b"},
		Turn{Role: RoleUser, Content: "c"},
		Turn{Role: RoleAssistant, Content: "d"},
	))

	turns, err := store.History(ctx, "1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "b", turns[0].Content)
	assert.Equal(t, "d", turns[2].Content)
}

func TestInMemoryStore_EmptyHistory(t *testing.T) {
	store := NewInMemoryStore(10)

	turns, err := store.History(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestInMemoryStore_NoCrossConversationInterference(t *testing.T) {
	store := NewInMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "1", Turn{Role: RoleUser, Content: "one"}))
	require.NoError(t, store.Append(ctx, "2", Turn{Role: RoleUser, Content: "two"}))

	turns, _ := store.History(ctx, "1")
	require.Len(t, turns, 1)
	assert.Equal(t, "one", turns[0].Content)

	turns, _ = store.History(ctx, "2")
	require.Len(t, turns, 1)
	assert.Equal(t, "two", turns[0].Content)
}

func TestInMemoryStore_Clear(t *testing.T) {
	store := NewInMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "1", Turn{Role: RoleUser, Content: "Hello"}))
	require.NoError(t, store.Clear(ctx, "1"))

	turns, err := store.History(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestInMemoryStore_ListIDs(t *testing.T) {
	store := NewInMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "b", Turn{Role: RoleUser, Content: "x"}))
	require.NoError(t, store.Append(ctx, "a", Turn{Role: RoleUser, Content: "y"}))

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestInMemoryStore_HistoryReturnsCopy(t *testing.T) {
	store := NewInMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "1", Turn{Role: RoleUser, Content: "original"}))

	turns, _ := store.History(ctx, "1")
	turns[0].Content = "mutated"

	again, _ := store.History(ctx, "1")
	assert.Equal(t, "original", again[0].Content)
}
