package redis

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gavel/models"
)

func TestNewProducer(t *testing.T) {
	tests := []struct {
		name    string
		client  *redis.Client
		stream  string
		opts    []ProducerOption[TestMessage]
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid configuration",
			client: redis.NewClient(&redis.Options{}),
			stream: "test-stream",
		},
		{
			name:    "nil client",
			client:  nil,
			stream:  "test-stream",
			wantErr: true,
			errMsg:  "redis client cannot be nil",
		},
		{
			name:    "empty stream",
			client:  redis.NewClient(&redis.Options{}),
			stream:  "",
			wantErr: true,
			errMsg:  "stream cannot be empty",
		},
		{
			name:   "with custom options",
			client: redis.NewClient(&redis.Options{}),
			stream: "test-stream",
			opts: []ProducerOption[TestMessage]{
				WithProducerLogger[TestMessage](slog.Default()),
				WithProducerBufferSize[TestMessage](200),
				WithProducerMaxLen[TestMessage](1000),
				WithProducerEncodeFunc[TestMessage](func(msg TestMessage) (map[string]any, error) {
					return map[string]any{"test": "value"}, nil
				}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			producer, err := NewProducer[TestMessage](tt.client, tt.stream, tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, producer)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, producer)
				producer.Close()
			}

			if tt.client != nil {
				tt.client.Close()
			}
		})
	}
}

func TestProducer_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	client, _, cleanup := setupTest(t)
	defer cleanup()

	producer, err := NewProducer[TestMessage](client, "test-stream")
	require.NoError(t, err)

	producer.Start()
	producer.Start() // 重複啟動不會有作用
	producer.Close()
	producer.Close() // 重複關閉不會有作用
}

func TestProducer_Publish(t *testing.T) {
	t.Run("successful publish with trimming", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		client, mock, cleanup := setupTest(t)
		defer cleanup()

		msg := TestMessage{ID: "1", Data: "test data"}
		values, err := EncodeMessage(msg)
		require.NoError(t, err)

		mock.ExpectXAdd(&redis.XAddArgs{
			Stream: "test-stream",
			MaxLen: 1000,
			Approx: true,
			Values: values,
		}).SetVal("1234-0")

		producer, err := NewProducer[TestMessage](client, "test-stream", WithProducerMaxLen[TestMessage](1000))
		require.NoError(t, err)

		producer.Start()
		assert.NoError(t, producer.Publish(context.Background(), msg))

		time.Sleep(100 * time.Millisecond)
		producer.Close()
	})

	t.Run("publish to closed producer", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		client, _, cleanup := setupTest(t)
		defer cleanup()

		producer, err := NewProducer[TestMessage](client, "test-stream")
		require.NoError(t, err)

		// 尚未啟動
		assert.ErrorIs(t, producer.Publish(context.Background(), TestMessage{}), ErrProducerClosed)

		producer.Start()
		producer.Close()
		assert.ErrorIs(t, producer.Publish(context.Background(), TestMessage{}), ErrProducerClosed)
	})

	t.Run("encode error", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		client, _, cleanup := setupTest(t)
		defer cleanup()

		producer, err := NewProducer[TestMessage](
			client,
			"test-stream",
			WithProducerEncodeFunc[TestMessage](func(TestMessage) (map[string]any, error) {
				return nil, errors.New("encode error")
			}),
		)
		require.NoError(t, err)

		producer.Start()
		err = producer.Publish(context.Background(), TestMessage{})
		assert.ErrorContains(t, err, "encode error")
		producer.Close()
	})

	t.Run("redis error does not fail publish", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		client, mock, cleanup := setupTest(t)
		defer cleanup()

		msg := TestMessage{ID: "1", Data: "test data"}
		values, err := EncodeMessage(msg)
		require.NoError(t, err)

		mock.ExpectXAdd(&redis.XAddArgs{
			Stream: "test-stream",
			Values: values,
		}).SetErr(redis.ErrClosed)

		producer, err := NewProducer[TestMessage](client, "test-stream")
		require.NoError(t, err)

		producer.Start()
		assert.NoError(t, producer.Publish(context.Background(), msg))

		time.Sleep(100 * time.Millisecond)
		producer.Close()
	})
}

func TestProducer_PublishEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, client, cleanup := setupMiniredis(t)
	defer cleanup()

	producer, err := NewProducer[models.Event](client, "events", WithProducerEncodeFunc[models.Event](EncodeEvent))
	require.NoError(t, err)
	producer.Start()

	first, second := newTestEvent(), newTestEvent()
	require.NoError(t, producer.Publish(context.Background(), first))
	require.NoError(t, producer.Publish(context.Background(), second))

	var messages []redis.XMessage
	assert.Eventually(t, func() bool {
		messages, err = client.XRange(context.Background(), "events", "-", "+").Result()
		return err == nil && len(messages) == 2
	}, time.Second, 10*time.Millisecond)
	producer.Close()

	// 順序與送出的順序相同
	for i, want := range []models.Event{first, second} {
		assert.Equal(t, string(want.Kind), messages[i].Values["kind"])
		got, err := DecodeEvent(messages[i].Values)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
	}
}
