package docstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("missing document", func(t *testing.T) {
		_, err := store.Get(ctx, "students/CSE/level-1/42")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("replace overwrites all fields", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "students/CSE/level-1/42", map[string]interface{}{
			"name":  "Ayşe",
			"phone": "555",
		}, false))
		require.NoError(t, store.Set(ctx, "students/CSE/level-1/42", map[string]interface{}{
			"name": "Ayşe Yılmaz",
		}, false))

		fields, err := store.Get(ctx, "students/CSE/level-1/42")
		require.NoError(t, err)
		assert.Equal(t, "Ayşe Yılmaz", fields["name"])
		_, ok := fields["phone"]
		assert.False(t, ok)
	})

	t.Run("merge preserves existing fields", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "students/CSE/level-1/42", map[string]interface{}{
			"phone": "555",
		}, true))

		fields, err := store.Get(ctx, "students/CSE/level-1/42")
		require.NoError(t, err)
		assert.Equal(t, "Ayşe Yılmaz", fields["name"])
		assert.Equal(t, "555", fields["phone"])
	})

	t.Run("path without collection rejected", func(t *testing.T) {
		err := store.Set(ctx, "orphan", map[string]interface{}{"a": 1}, false)
		assert.ErrorIs(t, err, ErrInvalidPath)
	})
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "students/CSE/level-1/a", map[string]interface{}{"n": 1}, false))
	require.NoError(t, store.Set(ctx, "students/CSE/level-1/b", map[string]interface{}{"n": 2}, false))
	require.NoError(t, store.Set(ctx, "students/CSE/level-2/c", map[string]interface{}{"n": 3}, false))

	docs, err := store.List(ctx, "students/CSE/level-1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	// Only direct children, never nested collections.
	docs, err = store.List(ctx, "students/CSE")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("commit applies set and delete together", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Set(ctx, "students/CSE/level-3/a", map[string]interface{}{"n": 1}, false))

		batch := store.Batch()
		batch.Set("students/CSE/level-4/a", map[string]interface{}{"n": 1}, true)
		batch.Delete("students/CSE/level-3/a")
		require.Equal(t, 2, batch.Len())
		require.NoError(t, batch.Commit(ctx))

		_, err := store.Get(ctx, "students/CSE/level-3/a")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.Get(ctx, "students/CSE/level-4/a")
		assert.NoError(t, err)
	})

	t.Run("oversized batch rejected without applying anything", func(t *testing.T) {
		store := NewMemoryStore()
		batch := store.Batch()
		for i := 0; i <= MaxBatchOps; i++ {
			batch.Set(fmt.Sprintf("graduates/%d", i), map[string]interface{}{"n": i}, false)
		}

		assert.ErrorIs(t, batch.Commit(ctx), ErrBatchTooLarge)
		assert.Zero(t, store.Len())
	})

	t.Run("cancelled context fails commit", func(t *testing.T) {
		store := NewMemoryStore()
		batch := store.Batch()
		batch.Set("graduates/1", map[string]interface{}{"n": 1}, false)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.Error(t, batch.Commit(cancelled))
		assert.Zero(t, store.Len())
	})
}

func TestCollectionOf(t *testing.T) {
	col, err := CollectionOf("settings/academic_year")
	require.NoError(t, err)
	assert.Equal(t, "settings", col)

	_, err = CollectionOf("settings")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = CollectionOf("settings/")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
