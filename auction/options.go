package auction

import (
	"log/slog"
	"time"
)

type engineOptions struct {
	logger        *slog.Logger
	clock         func() time.Time
	locker        ILocker
	maxBidRetries int
	retryBackoff  time.Duration

	// 防狙擊延長
	extensionWindow time.Duration
	extensionAmount time.Duration
	maxExtensions   int

	sweepWorkers   int
	sweepBatchSize int

	currency      string
	priceExponent int32
}

type EngineOption func(*engineOptions)

// WithEngineLogger 設置日誌記錄器
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithEngineClock 設置時間來源 (主要用於測試)
func WithEngineClock(clock func() time.Time) EngineOption {
	return func(o *engineOptions) {
		o.clock = clock
	}
}

// WithEngineLocker 設置結標用的鎖，預設為單一程序內的鎖
func WithEngineLocker(locker ILocker) EngineOption {
	return func(o *engineOptions) {
		o.locker = locker
	}
}

// WithEngineBidRetries 設置出價搶更新失敗時的重試次數與退避時間
func WithEngineBidRetries(retries int, backoff time.Duration) EngineOption {
	return func(o *engineOptions) {
		o.maxBidRetries = retries
		o.retryBackoff = backoff
	}
}

// WithEngineAntiSnipe 設置防狙擊延長規則
// 出價落在結束前 window 內時，結束時間延後 extension，每場拍賣最多延長 maxExtensions 次
func WithEngineAntiSnipe(window, extension time.Duration, maxExtensions int) EngineOption {
	return func(o *engineOptions) {
		o.extensionWindow = window
		o.extensionAmount = extension
		o.maxExtensions = maxExtensions
	}
}

// WithEngineSweep 設置結標時的平行處理數量與每次掃描的上限
func WithEngineSweep(workers, batchSize int) EngineOption {
	return func(o *engineOptions) {
		o.sweepWorkers = workers
		o.sweepBatchSize = batchSize
	}
}

// WithEngineOrderCurrency 設置訂單幣別與金額的小數位數
func WithEngineOrderCurrency(currency string, exponent int32) EngineOption {
	return func(o *engineOptions) {
		o.currency = currency
		o.priceExponent = exponent
	}
}

func defaultEngineOptions() engineOptions {
	return engineOptions{
		logger:          slog.Default(),
		clock:           time.Now,
		maxBidRetries:   3,
		retryBackoff:    5 * time.Millisecond,
		extensionWindow: 2 * time.Minute,
		extensionAmount: 2 * time.Minute,
		maxExtensions:   10,
		sweepWorkers:    8,
		sweepBatchSize:  500,
		currency:        "TWD",
		priceExponent:   0,
	}
}
