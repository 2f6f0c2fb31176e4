package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"np-blogger/internal/domain/entity"
	"np-blogger/pkg/logger"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	if sc := span.SpanContext(); sc.HasTraceID() {
		msg.SetMetadata("trace_id", sc.TraceID().String())
	}
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishSyncTrigger 发布一次同步触发
func (p *Producer) PublishSyncTrigger(ctx context.Context, repositoryID int64, mode entity.TriggerMode) (string, error) {
	msg, err := NewMessage(uuid.NewString(), MessageTypeSyncTrigger, repositoryID, &SyncTriggerMessage{
		RepositoryID: repositoryID,
		Mode:         mode,
	})
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, StreamSyncTrigger, msg)
}

// StreamDispatcher 将定时触发写入 Stream，由 sync-worker 消费执行
type StreamDispatcher struct {
	producer *Producer
}

// NewStreamDispatcher 创建基于 Stream 的分发器
func NewStreamDispatcher(producer *Producer) *StreamDispatcher {
	return &StreamDispatcher{producer: producer}
}

// Dispatch 逐个发布，首个失败即返回
func (d *StreamDispatcher) Dispatch(ctx context.Context, repositoryIDs []int64) error {
	for _, id := range repositoryIDs {
		if _, err := d.producer.PublishSyncTrigger(ctx, id, entity.TriggerScheduled); err != nil {
			return fmt.Errorf("dispatch repository %d: %w", id, err)
		}
	}
	return nil
}
