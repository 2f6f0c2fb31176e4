package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"np-blogger/internal/domain/entity"
	apperrors "np-blogger/pkg/errors"
)

type fakeTrigger struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (f *fakeTrigger) TriggerSync(_ context.Context, id int64, mode entity.TriggerMode) (*entity.SyncOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &entity.SyncOutcome{RepositoryID: id, Mode: mode, Status: entity.SyncSucceeded}, nil
}

func (f *fakeTrigger) called() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.calls...)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newConsumer(rdb *redis.Client, retryLimit int) *Consumer {
	return NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamSyncTrigger,
		Group:        ConsumerGroupSyncWorker,
		ConsumerName: "worker-1",
		BlockTimeout: 50 * time.Millisecond,
		RetryLimit:   retryLimit,
	})
}

func TestStreamDispatcherPublishes(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	d := NewStreamDispatcher(NewProducer(rdb, 100))

	require.NoError(t, d.Dispatch(ctx, []int64{1, 2, 3}))

	n, err := rdb.XLen(ctx, string(StreamSyncTrigger)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	entries, err := rdb.XRange(ctx, string(StreamSyncTrigger), "-", "+").Result()
	require.NoError(t, err)
	msg, err := decode(entries[0])
	require.NoError(t, err)
	assert.Equal(t, MessageTypeSyncTrigger, msg.Type)

	var payload SyncTriggerMessage
	require.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Equal(t, int64(1), payload.RepositoryID)
	assert.Equal(t, entity.TriggerScheduled, payload.Mode)
}

func TestConsumerDeliversToTrigger(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trigger := &fakeTrigger{}
	consumer := newConsumer(rdb, 3)
	consumer.RegisterHandler(MessageTypeSyncTrigger, SyncTriggerHandler(trigger))
	require.NoError(t, consumer.Start(ctx))
	defer consumer.Stop()

	_, err := NewProducer(rdb, 100).PublishSyncTrigger(ctx, 42, entity.TriggerScheduled)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(trigger.called()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []int64{42}, trigger.called())
}

func TestConsumerMovesExhaustedMessageToDLQ(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()

	trigger := &fakeTrigger{err: errors.New("settings store down")}
	consumer := newConsumer(rdb, 1)
	consumer.RegisterHandler(MessageTypeSyncTrigger, SyncTriggerHandler(trigger))
	require.NoError(t, rdb.XGroupCreateMkStream(ctx, string(StreamSyncTrigger), string(ConsumerGroupSyncWorker), "0").Err())

	_, err := NewProducer(rdb, 100).PublishSyncTrigger(ctx, 7, entity.TriggerScheduled)
	require.NoError(t, err)

	streams, err := rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    string(ConsumerGroupSyncWorker),
		Consumer: "worker-1",
		Streams:  []string{string(StreamSyncTrigger), ">"},
		Count:    1,
	}).Result()
	require.NoError(t, err)
	consumer.processMessage(ctx, streams[0].Messages[0])

	n, err := consumer.DLQLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, consumer.pending(ctx, "worker-1"))
}

func TestSyncTriggerHandlerSkipsRejections(t *testing.T) {
	ctx := context.Background()
	msg, err := NewMessage("m1", MessageTypeSyncTrigger, 9, &SyncTriggerMessage{RepositoryID: 9})
	require.NoError(t, err)

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"executed", nil, false},
		{"in progress", apperrors.ErrSyncAlreadyInProgress, false},
		{"not eligible", apperrors.ErrSyncNotEligible, false},
		{"infrastructure failure", apperrors.ErrDatabase, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SyncTriggerHandler(&fakeTrigger{err: tt.err})(ctx, msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(3))
}
