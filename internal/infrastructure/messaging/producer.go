package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/service"
	"z-story-studio/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, stream string, maxLen int64) *Producer {
	if strings.TrimSpace(stream) == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Producer{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Publish 发布消息到配置的流
func (p *Producer) Publish(ctx context.Context, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", p.stream),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		metrics.RedisStreamPublished.WithLabelValues(p.stream, "error").Inc()
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type": msg.Type,
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		metrics.RedisStreamPublished.WithLabelValues(p.stream, "error").Inc()
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.RedisStreamPublished.WithLabelValues(p.stream, "success").Inc()
	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishStory 发布故事生成事件
func (p *Producer) PublishStory(ctx context.Context, sessionID, kind string, rec *entity.StoryRecord) error {
	if rec == nil {
		return fmt.Errorf("story record is nil")
	}

	msgType := TypeStoryGenerated
	if kind == service.WorkflowRevision {
		msgType = TypeStoryRevised
	}

	msg, err := NewMessage(rec.ID, msgType, sessionID, &StoryEvent{
		SessionID:   sessionID,
		RecordID:    rec.ID,
		Model:       rec.Model,
		Temperature: rec.Temperature,
		DerivedFrom: rec.DerivedFrom,
		WordCount:   len(strings.Fields(rec.Content)),
		CreatedAt:   rec.CreatedAt,
	})
	if err != nil {
		return err
	}
	msg.SetMetadata("model", string(rec.Model))
	msg.SetMetadata("kind", kind)

	_, err = p.Publish(ctx, msg)
	return err
}
