package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mythforge/internal/entity"
)

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		_, err := s.Load(ctx, entity.KindUniverse, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save assigns an id", func(t *testing.T) {
		id, err := s.Save(ctx, entity.KindUniverse, entity.Entity{"name": "Eldoria"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		loaded, err := s.Load(ctx, entity.KindUniverse, id)
		require.NoError(t, err)
		name, _ := loaded.GetString("name")
		assert.Equal(t, "Eldoria", name)
		got, _ := loaded.GetString("id")
		assert.Equal(t, id, got)
	})

	t.Run("save keeps an existing id and overwrites", func(t *testing.T) {
		e := entity.Entity{"id": "fixed", "name": "First"}
		id, err := s.Save(ctx, entity.KindUniverse, e)
		require.NoError(t, err)
		assert.Equal(t, "fixed", id)

		e["name"] = "Second"
		_, err = s.Save(ctx, entity.KindUniverse, e)
		require.NoError(t, err)

		loaded, err := s.Load(ctx, entity.KindUniverse, "fixed")
		require.NoError(t, err)
		name, _ := loaded.GetString("name")
		assert.Equal(t, "Second", name)
	})

	t.Run("kinds are separate namespaces", func(t *testing.T) {
		_, err := s.Save(ctx, entity.KindCharacter, entity.Entity{"id": "fixed", "name": "Kira"})
		require.NoError(t, err)

		loaded, err := s.Load(ctx, entity.KindUniverse, "fixed")
		require.NoError(t, err)
		name, _ := loaded.GetString("name")
		assert.Equal(t, "Second", name)
	})

	t.Run("list is sorted", func(t *testing.T) {
		_, err := s.Save(ctx, entity.KindRace, entity.Entity{"id": "b"})
		require.NoError(t, err)
		_, err = s.Save(ctx, entity.KindRace, entity.Entity{"id": "a"})
		require.NoError(t, err)

		ids, err := s.List(ctx, entity.KindRace)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, entity.KindRace, "a"))
		_, err := s.Load(ctx, entity.KindRace, "a")
		assert.ErrorIs(t, err, ErrNotFound)

		// deleting a missing row is a no-op
		assert.NoError(t, s.Delete(ctx, entity.KindRace, "a"))
	})
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)

	t.Run("loaded entity is a copy", func(t *testing.T) {
		ctx := context.Background()
		id, err := s.Save(ctx, entity.KindUniverse, entity.Entity{"name": "Original"})
		require.NoError(t, err)

		first, err := s.Load(ctx, entity.KindUniverse, id)
		require.NoError(t, err)
		first.Set("name", "Mutated")

		second, err := s.Load(ctx, entity.KindUniverse, id)
		require.NoError(t, err)
		name, _ := second.GetString("name")
		assert.Equal(t, "Original", name)
	})
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mythforge.db")
	s, err := NewSQLite(path, nil)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	t.Run("nested structures survive the round trip", func(t *testing.T) {
		ctx := context.Background()
		e := entity.Entity{
			"name":  "Eldoria",
			"stats": map[string]any{"strength": float64(12)},
			"races": []any{map[string]any{"id": "elf", "name": "Elf"}},
		}
		id, err := s.Save(ctx, entity.KindUniverse, e)
		require.NoError(t, err)

		loaded, err := s.Load(ctx, entity.KindUniverse, id)
		require.NoError(t, err)
		v, ok := loaded.Get("stats.strength")
		require.True(t, ok)
		assert.Equal(t, float64(12), v)
	})
}
