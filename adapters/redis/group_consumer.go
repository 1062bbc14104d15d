package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrConsumerClosed = errors.New("consumer is closed")
)

const pendingPageSize = 100

// Message 封裝消息和ack所需資料
type Message[T any] struct {
	Data T
	ID   string

	client *redis.Client
	done   bool
	stream string
	group  string
	raw    map[string]any
}

// Done 確認消息已處理完成
func (m *Message[T]) Done(ctx context.Context) error {
	const op = "Message.Done"
	if m.done {
		return nil
	}
	if err := m.client.XAck(ctx, m.stream, m.group, m.ID).Err(); err != nil {
		return fmt.Errorf("[%s] Fail to ack message, err=%w", op, err)
	}
	m.done = true
	return nil
}

// Fail 將消息連同錯誤原因移到 dead-letter stream 並確認
func (m *Message[T]) Fail(ctx context.Context, failErr error) error {
	const op = "Message.Fail"
	if m.done {
		return nil
	}
	values := make(map[string]any, len(m.raw)+1)
	for k, v := range m.raw {
		values[k] = v
	}
	values["error"] = failErr.Error()
	if err := deadLetter(ctx, m.client, m.stream, m.group, m.ID, values); err != nil {
		return fmt.Errorf("[%s] %w", op, err)
	}
	m.done = true
	return nil
}

func deadLetterStream(stream string) string {
	return stream + ":dead-letter"
}

func deadLetter(ctx context.Context, client *redis.Client, stream, group, id string, values map[string]any) error {
	err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: deadLetterStream(stream),
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("fail to move message to dead letter queue, err=%w", err)
	}
	if err := client.XAck(ctx, stream, group, id).Err(); err != nil {
		return fmt.Errorf("fail to ack dead message, err=%w", err)
	}
	return nil
}

type groupConsumerOptions[T any] struct {
	logger         *slog.Logger
	decodeFunc     func(map[string]any) (T, error)
	bufferSize     int
	blockTimeout   time.Duration
	mutex          IAutoRenewMutex
	strictOrdering bool
}

type GroupConsumerOption[T any] func(*groupConsumerOptions[T])

// WithGroupConsumerLogger 設置日誌記錄器
func WithGroupConsumerLogger[T any](logger *slog.Logger) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.logger = logger
	}
}

// WithGroupConsumerDecodeFunc 設置消息解析函數
func WithGroupConsumerDecodeFunc[T any](fn func(map[string]any) (T, error)) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.decodeFunc = fn
	}
}

// WithGroupConsumerBufferSize 設置下游channel的緩衝大小
func WithGroupConsumerBufferSize[T any](size int) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.bufferSize = size
	}
}

// WithGroupConsumerBlockTimeout 設置阻塞讀取超時時間
func WithGroupConsumerBlockTimeout[T any](d time.Duration) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.blockTimeout = d
	}
}

// WithGroupConsumerMutex 注入mutex (主要用於測試)
func WithGroupConsumerMutex[T any](mutex IAutoRenewMutex) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.mutex = mutex
	}
}

// WithGroupConsumerStrictOrdering 同一個 group 同時只有一個 consumer 在讀取，並且先處理 pending 訊息
func WithGroupConsumerStrictOrdering[T any](strict bool) GroupConsumerOption[T] {
	return func(o *groupConsumerOptions[T]) {
		o.strictOrdering = strict
	}
}

type GroupConsumer[T any] struct {
	client     *redis.Client
	stream     string
	group      string
	consumer   string
	downStream chan *Message[T]
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	closed     bool
	logger     *slog.Logger
	mutex      IAutoRenewMutex
	pending    []string
	options    groupConsumerOptions[T]
}

func NewGroupConsumer[T any](
	client *redis.Client,
	stream, group, consumer string,
	opts ...GroupConsumerOption[T],
) (*GroupConsumer[T], error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if stream == "" || group == "" || consumer == "" {
		return nil, errors.New("stream, group and consumer cannot be empty")
	}

	// 默認選項
	options := groupConsumerOptions[T]{
		logger:       slog.Default(),
		decodeFunc:   DecodeMessage[T],
		bufferSize:   1,
		blockTimeout: time.Second,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	gc := &GroupConsumer[T]{
		logger: options.logger.With(
			slog.String("caller", "GroupConsumer"),
			slog.String("stream", stream),
			slog.String("group", group),
			slog.String("consumer", consumer)),
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		closed:   true,
		options:  options,
	}
	if options.strictOrdering {
		gc.mutex = options.mutex
		if gc.mutex == nil {
			gc.mutex = NewAutoRenewMutex(client, fmt.Sprintf("lock:%s:%s", stream, group), WithAutoRenewMutexSkipLockError(true))
		}
	}
	return gc, nil
}

// ensureGroup 建立 consumer group (stream 不存在時一併建立)，已存在時忽略
func (s *GroupConsumer[T]) ensureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("fail to create consumer group, err=%w", err)
	}
	return nil
}

func (s *GroupConsumer[T]) Start() error {
	const op = "GroupConsumer.Start"
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.ensureGroup(ctx); err != nil {
		cancel()
		return fmt.Errorf("[%s] %w", op, err)
	}
	s.downStream = make(chan *Message[T], s.options.bufferSize)
	s.cancelFunc = cancel
	s.closed = false
	s.logger.Info("starting group consumer")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.logger.Info("group consumer goroutine stopped")
		defer close(s.downStream)
		s.run(ctx)
	}()
	return nil
}

func (s *GroupConsumer[T]) run(ctx context.Context) {
	for ctx.Err() == nil {
		workCtx := ctx
		if s.options.strictOrdering {
			// 持有鎖期間 workCtx 有效，鎖遺失時 workCtx 會被取消
			lockCtx, err := s.mutex.Lock(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("failed to acquire lock", slog.Any("error", err))
				continue
			}
			workCtx = lockCtx
		}

		err := s.consume(workCtx)
		if s.options.strictOrdering {
			if _, unlockErr := s.mutex.Unlock(); unlockErr != nil {
				s.logger.Warn("failed to release lock", slog.Any("error", unlockErr))
			}
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			s.logger.Warn("lock lost, restarting group consumer")
			continue
		}
		if err != nil {
			s.logger.Error("error processing messages, restarting group consumer", slog.Any("error", err))
		}
	}
}

// consume 持續讀取訊息直到 ctx 結束或發生需要重新開始的錯誤
func (s *GroupConsumer[T]) consume(ctx context.Context) error {
	if s.options.strictOrdering {
		if err := s.loadPending(ctx); err != nil {
			return err
		}
	}
	for {
		message, err := s.next(ctx)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return context.Canceled
			}
			// 與 redis 之間的通訊錯誤，重試即可
			s.logger.Error("fetch message error", slog.Any("error", err))
			continue
		}

		data, err := s.options.decodeFunc(message.Values)
		if err != nil {
			// 解析失敗重試也不會成功，移到 dead-letter 後繼續
			s.logger.Error("failed to parse message",
				slog.String("messageId", message.ID),
				slog.Any("error", err))
			if err := deadLetter(ctx, s.client, s.stream, s.group, message.ID, message.Values); err != nil {
				// 訊息留在 pending 中，嚴格順序模式下次重啟時會再處理一次
				return err
			}
			continue
		}

		msg := &Message[T]{
			Data:   data,
			ID:     message.ID,
			client: s.client,
			stream: s.stream,
			group:  s.group,
			raw:    message.Values,
		}
		select {
		case <-ctx.Done():
			return context.Canceled
		case s.downStream <- msg:
		}
	}
}

// loadPending 取得這個 group 中還沒確認的訊息 ID
func (s *GroupConsumer[T]) loadPending(ctx context.Context) error {
	s.pending = s.pending[:0]
	start := "-"
	for {
		page, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: s.stream,
			Group:  s.group,
			Start:  start,
			End:    "+",
			Count:  pendingPageSize,
		}).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return fmt.Errorf("fail to get pending messages, err=%w", err)
		}
		for _, p := range page {
			s.pending = append(s.pending, p.ID)
		}
		if len(page) < pendingPageSize {
			break
		}
		start = "(" + page[len(page)-1].ID
	}
	if len(s.pending) > 0 {
		s.logger.Info("resume pending messages", slog.Int("count", len(s.pending)))
	}
	return nil
}

func (s *GroupConsumer[T]) next(ctx context.Context) (redis.XMessage, error) {
	if len(s.pending) > 0 {
		id := s.pending[0]
		s.pending = s.pending[1:]
		messages, err := s.client.XRangeN(ctx, s.stream, id, id, 1).Result()
		if err != nil {
			return redis.XMessage{}, err
		}
		if len(messages) == 0 {
			return redis.XMessage{}, redis.Nil
		}
		return messages[0], nil
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    1,
		Block:    s.options.blockTimeout,
	}).Result()
	if err != nil {
		return redis.XMessage{}, err
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return redis.XMessage{}, redis.Nil
	}
	return streams[0].Messages[0], nil
}

// Subscribe 訂閱Stream，返回Message通道
func (s *GroupConsumer[T]) Subscribe() <-chan *Message[T] {
	return s.downStream
}

func (s *GroupConsumer[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.logger.Info("closing group consumer")
	s.closed = true
	s.cancelFunc()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("group consumer closed gracefully")
	return nil
}
