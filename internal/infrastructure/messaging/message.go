// Package messaging 基于 Redis Stream 分发同步触发消息
package messaging

import (
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"

	"np-blogger/internal/domain/entity"
)

// 消息类型
const (
	MessageTypeSyncTrigger = "sync_trigger"
)

// Message 消息结构
type Message struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	RepositoryID int64             `json:"repository_id"`
	Payload      json.RawMessage   `json:"payload"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewMessage 创建新消息
func NewMessage(id, msgType string, repositoryID int64, payload any) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:           id,
		Type:         msgType,
		RepositoryID: repositoryID,
		Payload:      payloadBytes,
		CreatedAt:    time.Now(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// GetMetadata 获取元数据
func (m *Message) GetMetadata(key string) string {
	return m.Metadata[key]
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// SyncTriggerMessage 同步触发载荷
type SyncTriggerMessage struct {
	RepositoryID int64              `json:"repository_id"`
	Mode         entity.TriggerMode `json:"mode"`
}

// Stream 流定义
type Stream string

const (
	StreamSyncTrigger Stream = "stream:sync:trigger"
)

// DLQStream 获取对应的死信队列流名称
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组定义
type ConsumerGroup string

const (
	ConsumerGroupSyncWorker ConsumerGroup = "cg-sync-worker"
)

// BackoffConfig 待处理消息的重投退避
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 默认退避配置
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// CalculateBackoff 第 retryCount 次重投前需要的最小空闲时间
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.Initial
	b.MaxInterval = c.Max
	b.Multiplier = c.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 0; i < retryCount; i++ {
		d = b.NextBackOff()
	}
	return d
}
