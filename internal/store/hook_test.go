package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookRepository_CRUD(t *testing.T) {
	s := newTestStore(t)
	repo := s.Hooks()

	h := &Hook{ID: "h1", Event: "pose-completed", PluginName: "announce", Enabled: true}
	require.NoError(t, repo.Create(h))
	assert.False(t, h.CreatedAt.IsZero())

	got, err := repo.GetByID("h1")
	require.NoError(t, err)
	assert.Equal(t, "pose-completed", got.Event)
	assert.Equal(t, "announce", got.PluginName)
	assert.True(t, got.Enabled)
	assert.JSONEq(t, `{}`, string(got.Config), "nil config is stored as an empty object")

	got.Enabled = false
	got.Config = json.RawMessage(`{"voice":"Samantha"}`)
	require.NoError(t, repo.Update(got))

	got, err = repo.GetByID("h1")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.JSONEq(t, `{"voice":"Samantha"}`, string(got.Config))

	require.NoError(t, repo.Delete("h1"))
	_, err = repo.GetByID("h1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete("h1"), ErrNotFound)
	assert.ErrorIs(t, repo.Update(got), ErrNotFound)
}

func TestHookRepository_ListEnabled(t *testing.T) {
	s := newTestStore(t)
	repo := s.Hooks()

	require.NoError(t, repo.Create(&Hook{ID: "a", Event: "pose-completed", PluginName: "announce", Enabled: true}))
	require.NoError(t, repo.Create(&Hook{ID: "b", Event: "pose-completed", PluginName: "chime", Enabled: false}))
	require.NoError(t, repo.Create(&Hook{ID: "c", Event: "level-up", PluginName: "announce", Enabled: true}))

	hooks, err := repo.ListEnabled("pose-completed")
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, "a", hooks[0].ID)

	all, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.ListEnabled("unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}
