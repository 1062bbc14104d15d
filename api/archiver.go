package api

import (
	"context"
	"log/slog"
	"time"
)

const archiveTimeout = 10 * time.Second

// archiveEvents 從 group consumer 讀取事件寫入歸檔，處理失敗的事件會被移到 dead letter stream
func (impl *ServerImpl) archiveEvents(ctx context.Context) {
	logger := impl.logger.With(slog.String("caller", "EventArchiver"))
	logger.Info("Start event archive worker")
	defer logger.Info("Event archive worker stopped")
	ch := impl.groupConsumer.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			logger.Debug("Receive message", slog.String("messageID", msg.ID))
			archiveCtx, cancel := context.WithTimeout(ctx, archiveTimeout)
			handleErr := impl.store.ArchiveEvent(archiveCtx, msg.Data)
			cancel()
			if handleErr != nil {
				logger.Error("Fail to archive event", slog.String("eventID", msg.Data.ID.String()), slog.Any("error", handleErr))
				if err := msg.Fail(ctx, handleErr); err != nil {
					logger.Error("Fail to fail message", slog.Any("error", err))
				}
				continue
			}
			if err := msg.Done(ctx); err != nil {
				logger.Error("Archive success but fail to done message", slog.Any("error", err))
				continue
			}
			logger.Debug("Archive success", slog.String("eventID", msg.Data.ID.String()))
		}
	}
}
