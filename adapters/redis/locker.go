package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"gavel/auction"
)

type lockerOptions struct {
	logger *slog.Logger
	prefix string
	expiry time.Duration
}

type LockerOption func(*lockerOptions)

// WithLockerLogger 設置日誌記錄器
func WithLockerLogger(logger *slog.Logger) LockerOption {
	return func(o *lockerOptions) {
		o.logger = logger
	}
}

// WithLockerPrefix 設置鎖的 key 前綴
func WithLockerPrefix(prefix string) LockerOption {
	return func(o *lockerOptions) {
		o.prefix = prefix
	}
}

// WithLockerExpiry 設置鎖的期限，持有期間會自動續期
func WithLockerExpiry(d time.Duration) LockerOption {
	return func(o *lockerOptions) {
		o.expiry = d
	}
}

// Locker 以 AutoRenewMutex 實作 auction.ILocker，讓多個實例不會同時結標同一場拍賣
type Locker struct {
	client  *redis.Client
	logger  *slog.Logger
	options lockerOptions
}

func NewLocker(client *redis.Client, opts ...LockerOption) (*Locker, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	// 默認選項
	options := lockerOptions{
		logger: slog.Default(),
		expiry: 30 * time.Second,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	return &Locker{
		client:  client,
		logger:  options.logger.With(slog.String("caller", "RedisLocker")),
		options: options,
	}, nil
}

// TryLock 取得鎖之後會持續續期直到 unlock 被呼叫
// 續期失敗時只記錄警告，結標流程依靠 WonAuction 標記與版本比對保證重複執行也不會產生第二筆訂單
func (l *Locker) TryLock(ctx context.Context, key string) (func(), error) {
	const op = "Locker.TryLock"
	key = l.options.prefix + key
	mutex := NewAutoRenewMutex(l.client, key, WithAutoRenewMutexExpiry(l.options.expiry))
	lockCtx, err := mutex.TryLock(ctx)
	if err != nil {
		if errors.Is(err, ErrLockTaken) {
			return nil, auction.ErrLockBusy
		}
		return nil, fmt.Errorf("[%s] %w", op, err)
	}

	released := make(chan struct{})
	go l.watch(lockCtx, released, key)

	var once sync.Once
	return func() {
		once.Do(func() {
			// 先通知 watch，Unlock 也會取消 lockCtx
			close(released)
			if _, err := mutex.Unlock(); err != nil {
				l.logger.Warn("Fail to release lock", slog.String("key", key), slog.Any("error", err))
			}
		})
	}, nil
}

// watch 在鎖還沒釋放前就停止續期時記錄警告
func (l *Locker) watch(lockCtx context.Context, released <-chan struct{}, key string) {
	select {
	case <-released:
	case <-lockCtx.Done():
		select {
		case <-released:
		default:
			l.logger.Warn("Lock is no longer renewed before release", slog.String("key", key), slog.Any("error", context.Cause(lockCtx)))
		}
	}
}
