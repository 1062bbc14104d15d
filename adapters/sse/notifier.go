package sse

import (
	"context"
	"errors"

	"gavel/models"
)

// LocalNotifier 將拍賣事件直接廣播給這個實例上訂閱該拍賣的連線
// 只有單一實例部署時使用，多個實例時事件應經由 redis stream 分送
type LocalNotifier struct {
	manager IConnectionManager[models.Event]
}

func NewLocalNotifier(manager IConnectionManager[models.Event]) (*LocalNotifier, error) {
	if manager == nil {
		return nil, errors.New("connection manager cannot be nil")
	}
	return &LocalNotifier{manager: manager}, nil
}

func (n *LocalNotifier) Notify(_ context.Context, event models.Event) error {
	return n.manager.Publish(event.AuctionID.String(), event)
}
