//go:generate mockgen -package=redis -destination=mock.go -source=interfaces.go

package redis

import (
	"context"
)

// IProducer 將資料寫入 stream
type IProducer[T any] interface {
	Start()
	Publish(ctx context.Context, data T) error
	Close()
}

// IGroupConsumer 以 consumer group 讀取 stream，每筆訊息需要 Done 或 Fail
type IGroupConsumer[T any] interface {
	Start() error
	Subscribe() <-chan *Message[T]
	Close() error
}

// IConsumer 從 stream 尾端開始讀取，不需要確認
type IConsumer[T any] interface {
	Start()
	Subscribe() <-chan T
	Close()
}

// IAutoRenewMutex 持有期間會自動續期的分散式鎖
type IAutoRenewMutex interface {
	// Lock 等待直到取得鎖
	Lock(ctx context.Context) (context.Context, error)
	// TryLock 只嘗試一次，鎖被持有時回傳 ErrLockTaken
	TryLock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
	Valid() bool
}
