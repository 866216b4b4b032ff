package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/repository"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)

	require.NoError(t, store.Create(ctx, entity.NewSession("s1")))
	assert.Error(t, store.Create(ctx, entity.NewSession("s1")))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	got.Append(&entity.StoryRecord{ID: "r1", Content: "once"})

	// 未保存前修改不可见
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Len())

	require.NoError(t, store.Save(ctx, got))
	again, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Len())

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "s1"), repository.ErrSessionNotFound)
	assert.ErrorIs(t, store.Save(ctx, got), repository.ErrSessionNotFound)
}

func TestSessionStoreIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)
	require.NoError(t, store.Create(ctx, entity.NewSession("a")))
	require.NoError(t, store.Create(ctx, entity.NewSession("b")))

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	a.Append(&entity.StoryRecord{ID: "r1"})
	_, err = a.ToggleSelection("r1")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, a))

	b, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Selection)
	assert.Equal(t, 2, store.Len())
}

func TestSessionStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Create(ctx, entity.NewSession("s1")))

	now = now.Add(30 * time.Second)
	s, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s))

	// 保存刷新了过期时间
	now = now.Add(45 * time.Second)
	_, err = store.Get(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}
