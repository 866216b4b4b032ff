package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-story-studio/internal/config"
	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/repository"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewClient(&config.RedisConfig{Host: mr.Host(), Port: port, PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	store := NewSessionStore(client, time.Hour, "test:session:")

	require.NoError(t, store.Create(ctx, entity.NewSession("s1")))
	assert.True(t, mr.Exists("test:session:s1"))
	assert.Error(t, store.Create(ctx, entity.NewSession("s1")))

	s, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	temp := 0.7
	s.Append(&entity.StoryRecord{ID: "r1", Model: entity.ModelGPT4o, Temperature: &temp, Content: "tale", DerivedFrom: []string{}})
	s.Append(&entity.StoryRecord{ID: "r2", Model: entity.ModelO1, Content: "saga", DerivedFrom: []string{"r1"}})
	_, err = s.ToggleSelection("r2")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	require.NotNil(t, loaded.Records[0].Temperature)
	assert.Equal(t, 0.7, *loaded.Records[0].Temperature)
	assert.Nil(t, loaded.Records[1].Temperature)
	assert.Equal(t, []string{"r1"}, loaded.Records[1].DerivedFrom)
	assert.Equal(t, []string{"r2"}, loaded.Selection)
}

func TestRedisSessionStoreTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	store := NewSessionStore(client, time.Minute, "")

	require.NoError(t, store.Create(ctx, entity.NewSession("s1")))
	assert.Equal(t, time.Minute, mr.TTL("story:session:s1"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	// 过期会话不会被 Save 复活
	assert.ErrorIs(t, store.Save(ctx, entity.NewSession("s1")), repository.ErrSessionNotFound)
	assert.False(t, mr.Exists("story:session:s1"))
}

func TestRedisSessionStoreDelete(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	store := NewSessionStore(client, time.Hour, "")

	require.NoError(t, store.Create(ctx, entity.NewSession("s1")))
	require.NoError(t, store.Delete(ctx, "s1"))
	assert.ErrorIs(t, store.Delete(ctx, "s1"), repository.ErrSessionNotFound)
}

func TestClientHealthCheck(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	client, err := NewClient(&config.RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}
