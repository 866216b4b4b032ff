package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/service"
)

func newTestProducer(t *testing.T) (*Producer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewProducer(client, "", 0), client
}

func TestPublishStoryWritesEvent(t *testing.T) {
	p, client := newTestProducer(t)
	ctx := context.Background()

	temp := 0.7
	rec := &entity.StoryRecord{
		ID:          "rec-1",
		CreatedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Model:       entity.ModelGPT4o,
		Temperature: &temp,
		Content:     "three little words",
		DerivedFrom: []string{"rec-0"},
	}
	require.NoError(t, p.PublishStory(ctx, "s1", service.WorkflowRevision, rec))

	entries, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, TypeStoryRevised, entries[0].Values["type"])

	var msg Message
	data, ok := entries[0].Values["data"].(string)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.Equal(t, "rec-1", msg.ID)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, "gpt-4o", msg.Metadata["model"])
	assert.Equal(t, service.WorkflowRevision, msg.Metadata["kind"])

	var ev StoryEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &ev))
	assert.Equal(t, "rec-1", ev.RecordID)
	assert.Equal(t, 3, ev.WordCount)
	assert.Equal(t, []string{"rec-0"}, ev.DerivedFrom)
	require.NotNil(t, ev.Temperature)
	assert.Equal(t, 0.7, *ev.Temperature)
}

func TestPublishFreshStoryType(t *testing.T) {
	p, client := newTestProducer(t)
	ctx := context.Background()

	require.NoError(t, p.PublishStory(ctx, "s1", service.WorkflowFresh, &entity.StoryRecord{ID: "r", Model: entity.ModelO1}))

	entries, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, TypeStoryGenerated, entries[0].Values["type"])
}

func TestPublishStoryRejectsNil(t *testing.T) {
	p, _ := newTestProducer(t)
	assert.Error(t, p.PublishStory(context.Background(), "s1", service.WorkflowFresh, nil))
}
