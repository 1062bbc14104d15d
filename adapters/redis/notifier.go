package redis

import (
	"context"
	"errors"
	"fmt"

	"gavel/models"
)

// Notifier 將拍賣事件寫入 redis stream，讓其他實例的 SSE 與事件歸檔使用
type Notifier struct {
	producer IProducer[models.Event]
}

func NewNotifier(producer IProducer[models.Event]) (*Notifier, error) {
	if producer == nil {
		return nil, errors.New("producer cannot be nil")
	}
	return &Notifier{producer: producer}, nil
}

func (n *Notifier) Notify(ctx context.Context, event models.Event) error {
	const op = "RedisNotifier.Notify"
	if err := n.producer.Publish(ctx, event); err != nil {
		return fmt.Errorf("[%s] Fail to publish %s event, err=%w", op, event.Kind, err)
	}
	return nil
}
