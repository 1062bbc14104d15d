package auction

import (
	"context"
	"errors"
	"fmt"

	"gavel/models"
)

// MultiNotifier 將事件送給所有的 notifier，任何一個失敗都會回傳錯誤
type MultiNotifier []INotifier

func (m MultiNotifier) Notify(ctx context.Context, event models.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, models.Event) error {
	return nil
}

// ArchiveNotifier 直接把事件寫入歸檔，沒有訊息佇列時使用
type ArchiveNotifier struct {
	Archive IEventArchive
}

func (n ArchiveNotifier) Notify(ctx context.Context, event models.Event) error {
	if err := n.Archive.ArchiveEvent(ctx, event); err != nil {
		return fmt.Errorf("fail to archive %s event, err=%w", event.Kind, err)
	}
	return nil
}
