package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"

	"gavel/auction"
	"gavel/models"
)

type archiverOptions struct {
	logger         *slog.Logger
	durable        string
	archiveTimeout time.Duration
}

type ArchiverOption func(*archiverOptions)

// WithArchiverLogger 設置日誌記錄器
func WithArchiverLogger(logger *slog.Logger) ArchiverOption {
	return func(o *archiverOptions) {
		o.logger = logger
	}
}

// WithArchiverDurable 設置 durable consumer 名稱，多個實例使用同一個名稱時共同分擔
func WithArchiverDurable(name string) ArchiverOption {
	return func(o *archiverOptions) {
		o.durable = name
	}
}

// WithArchiverTimeout 設置每筆事件寫入的超時時間
func WithArchiverTimeout(d time.Duration) ArchiverOption {
	return func(o *archiverOptions) {
		o.archiveTimeout = d
	}
}

// Archiver 從 JetStream 讀取事件並寫入 IEventArchive
type Archiver struct {
	stream  jetstream.Stream
	archive auction.IEventArchive
	subject string
	mu      sync.Mutex
	consume jetstream.ConsumeContext
	logger  *slog.Logger
	options archiverOptions
}

func NewArchiver(stream jetstream.Stream, archive auction.IEventArchive, subjectPrefix string, opts ...ArchiverOption) (*Archiver, error) {
	if stream == nil {
		return nil, errors.New("stream cannot be nil")
	}
	if archive == nil {
		return nil, errors.New("archive cannot be nil")
	}

	// 默認選項
	options := archiverOptions{
		logger:         slog.Default(),
		durable:        "event-archiver",
		archiveTimeout: 10 * time.Second,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	return &Archiver{
		stream:  stream,
		archive: archive,
		subject: subjectPrefix + ".>",
		logger:  options.logger.With(slog.String("caller", "NatsArchiver")),
		options: options,
	}, nil
}

func (a *Archiver) Start(ctx context.Context) error {
	const op = "Archiver.Start"
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.consume != nil {
		return nil
	}
	consumer, err := a.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       a.options.durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: a.subject,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("[%s] Fail to create consumer, err=%w", op, err)
	}
	consume, err := consumer.Consume(a.handle)
	if err != nil {
		return fmt.Errorf("[%s] Fail to start consuming, err=%w", op, err)
	}
	a.consume = consume
	a.logger.Info("event archiver started", slog.String("durable", a.options.durable))
	return nil
}

// handle 寫入成功才 ack，寫入失敗時 nak 讓 JetStream 重送，無法解析的訊息直接丟棄
func (a *Archiver) handle(msg jetstream.Msg) {
	var event models.Event
	if err := msgpack.Unmarshal(msg.Data(), &event); err != nil {
		a.logger.Error("failed to parse event", slog.String("subject", msg.Subject()), slog.Any("error", err))
		if err := msg.Term(); err != nil {
			a.logger.Error("failed to terminate message", slog.Any("error", err))
		}
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.options.archiveTimeout)
	defer cancel()
	if err := a.archive.ArchiveEvent(ctx, event); err != nil {
		a.logger.Error("failed to archive event", slog.String("eventID", event.ID.String()), slog.Any("error", err))
		if err := msg.Nak(); err != nil {
			a.logger.Error("failed to nak message", slog.Any("error", err))
		}
		return
	}
	if err := msg.Ack(); err != nil {
		a.logger.Error("failed to ack message", slog.Any("error", err))
	}
}

func (a *Archiver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.consume == nil {
		return
	}
	a.consume.Stop()
	a.consume = nil
	a.logger.Info("event archiver stopped")
}
