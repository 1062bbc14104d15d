package sse

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrManagerClosed = errors.New("connection manager is closed")
)

type managerOptions[T any] struct {
	logger     *slog.Logger
	subscriber ISubscriber[T]
	bufferSize int
}

type ManagerOption[T any] func(*managerOptions[T])

// WithLogger 設置日誌記錄器
func WithLogger[T any](logger *slog.Logger) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.logger = logger
	}
}

// WithSubscriber 設置外部訊息來源，收到的訊息會廣播給對應頻道
func WithSubscriber[T any](subscriber ISubscriber[T]) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.subscriber = subscriber
	}
}

// WithBufferSize 設置每個連線的緩衝大小
func WithBufferSize[T any](size int) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.bufferSize = size
	}
}

// ConnectionManager 管理多個 SSE 頻道的訂閱與發布
// 有設置 subscriber 時，多個實例透過同一個外部來源共享訊息
type ConnectionManager[T any] struct {
	logger     *slog.Logger
	subscriber ISubscriber[T]
	bufferSize int

	mu       sync.RWMutex
	wg       sync.WaitGroup
	started  bool
	closed   bool
	channels map[string]*Channel[T]
}

func NewConnectionManager[T any](opts ...ManagerOption[T]) (*ConnectionManager[T], error) {
	// 默認選項
	options := managerOptions[T]{
		logger:     slog.Default(),
		bufferSize: 16,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	return &ConnectionManager[T]{
		logger:     options.logger.With(slog.String("caller", "ConnectionManager")),
		subscriber: options.subscriber,
		bufferSize: options.bufferSize,
		channels:   make(map[string]*Channel[T]),
	}, nil
}

func (cm *ConnectionManager[T]) Start() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.started || cm.closed {
		return
	}
	cm.started = true
	if cm.subscriber == nil {
		return
	}

	cm.subscriber.Start()
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		defer cm.logger.Info("subscriber loop stopped")
		for req := range cm.subscriber.Subscribe() {
			cm.broadcast(req.Channel, req.Message)
		}
	}()
}

func (cm *ConnectionManager[T]) broadcast(channelName string, data T) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c, ok := cm.channels[channelName]
	if !ok {
		return
	}
	if dropped := c.Broadcast(data); dropped > 0 {
		cm.logger.Warn("slow subscribers dropped messages",
			slog.String("channel", channelName),
			slog.Int("dropped", dropped))
	}
}

// Done 停止外部訊息來源並關閉所有訂閱者的通道
func (cm *ConnectionManager[T]) Done() {
	cm.mu.Lock()
	if cm.closed {
		cm.mu.Unlock()
		return
	}
	cm.closed = true
	started := cm.started
	cm.mu.Unlock()

	if started && cm.subscriber != nil {
		// subscriber 關閉後會關閉它的通道，讓廣播的 goroutine 結束
		cm.subscriber.Close()
	}
	cm.wg.Wait()

	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, channel := range cm.channels {
		channel.UnsubscribeAll()
	}
	clear(cm.channels)
}

func (cm *ConnectionManager[T]) Subscribe(channelName string) (<-chan T, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.closed {
		return nil, ErrManagerClosed
	}
	c, ok := cm.channels[channelName]
	if !ok {
		c = NewChannel[T](cm.bufferSize)
		cm.channels[channelName] = c
	}
	return c.Subscribe(), nil
}

func (cm *ConnectionManager[T]) Publish(channelName string, data T) error {
	cm.mu.RLock()
	closed := cm.closed
	cm.mu.RUnlock()
	if closed {
		return ErrManagerClosed
	}
	cm.broadcast(channelName, data)
	return nil
}

func (cm *ConnectionManager[T]) Unsubscribe(channelName string, ch <-chan T) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	c, ok := cm.channels[channelName]
	if !ok {
		return
	}
	c.Unsubscribe(ch)
	if c.IsIdle() {
		delete(cm.channels, channelName)
	}
}
