package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"gavel/models"
)

// SweepSummary 一次掃描的統計
type SweepSummary struct {
	Activated int
	Closed    int
	Skipped   int
	Errored   int
	Outcomes  []Outcome
}

// Sweep 啟用到期的 scheduled 拍賣，並結束所有到期或還沒完成的拍賣
//
// 每場拍賣的結標互相獨立，單一拍賣失敗只會記錄在 Outcomes。
// ctx 結束後不再開始新的結標，已經開始的結標會執行完畢。
func (e *Engine) Sweep(ctx context.Context) (*SweepSummary, error) {
	const op = "Sweep"
	summary := &SweepSummary{}
	now := e.now()

	activatable, err := e.store.ListActivatable(ctx, now, e.options.sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to list activatable auctions, err=%w", op, err)
	}
	for i := range activatable {
		if ctx.Err() != nil {
			break
		}
		if e.activate(ctx, &activatable[i], now) {
			summary.Activated++
		}
	}

	due, err := e.store.ListDueAuctions(ctx, now, e.options.sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to list due auctions, err=%w", op, err)
	}
	unreconciled, err := e.store.ListUnreconciled(ctx, e.options.sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to list unreconciled auctions, err=%w", op, err)
	}

	ids := make([]uuid.UUID, 0, len(due)+len(unreconciled))
	seen := make(map[uuid.UUID]struct{}, cap(ids))
	for _, list := range [][]models.Auction{due, unreconciled} {
		for _, a := range list {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			ids = append(ids, a.ID)
		}
	}

	// 已開始的結標不跟著 ctx 取消，避免停在一半
	closeCtx := context.WithoutCancel(ctx)
	p := pool.NewWithResults[Outcome]().WithMaxGoroutines(e.options.sweepWorkers)
	for _, id := range ids {
		if ctx.Err() != nil {
			e.logger.Warn("Sweep interrupted, remaining auctions are left for the next sweep")
			break
		}
		p.Go(func() Outcome {
			return e.CloseAuction(closeCtx, id)
		})
	}
	summary.Outcomes = p.Wait()

	for _, outcome := range summary.Outcomes {
		switch {
		case outcome.Closed():
			summary.Closed++
		case outcome.Status == OutcomeErrored:
			summary.Errored++
		default:
			summary.Skipped++
		}
	}
	if len(ids) > 0 || summary.Activated > 0 {
		e.logger.Info("Sweep finished",
			slog.Int("activated", summary.Activated),
			slog.Int("closed", summary.Closed),
			slog.Int("skipped", summary.Skipped),
			slog.Int("errored", summary.Errored))
	}
	return summary, nil
}

// activate scheduled -> live，版本衝突代表其他人已處理，回傳 false
func (e *Engine) activate(ctx context.Context, a *models.Auction, now time.Time) bool {
	next, err := Transition(a, models.AuctionStatusLive, TransitionParams{Now: now})
	if err != nil {
		e.logger.Error("Fail to activate auction", slog.String("auctionID", a.ID.String()), slog.Any("error", err))
		return false
	}
	err = e.store.UpdateAuction(ctx, a.Version, &next)
	if errors.Is(err, ErrVersionConflict) {
		return false
	}
	if err != nil {
		e.logger.Error("Fail to activate auction", slog.String("auctionID", a.ID.String()), slog.Any("error", err))
		return false
	}
	e.logger.Info("Auction activated", slog.String("auctionID", a.ID.String()))
	return true
}

type sweeperOptions struct {
	logger   *slog.Logger
	interval time.Duration
}

type SweeperOption func(*sweeperOptions)

// WithSweeperLogger 設置日誌記錄器
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(o *sweeperOptions) {
		o.logger = logger
	}
}

// WithSweeperInterval 設置掃描間隔
func WithSweeperInterval(d time.Duration) SweeperOption {
	return func(o *sweeperOptions) {
		o.interval = d
	}
}

// Sweeper 定時呼叫 Engine.Sweep
type Sweeper struct {
	engine     *Engine
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	logger     *slog.Logger
	options    sweeperOptions
}

func NewSweeper(engine *Engine, opts ...SweeperOption) (*Sweeper, error) {
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}

	// 默認選項
	options := sweeperOptions{
		logger:   slog.Default(),
		interval: time.Minute,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}
	if options.interval <= 0 {
		return nil, errors.New("interval must be positive")
	}

	return &Sweeper{
		engine:  engine,
		closed:  true,
		logger:  options.logger.With(slog.String("caller", "Sweeper")),
		options: options,
	}, nil
}

func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel
	s.closed = false
	s.logger.Info("starting sweeper", slog.Duration("interval", s.options.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.logger.Info("sweeper goroutine stopped")

		ticker := time.NewTicker(s.options.interval)
		defer ticker.Stop()
		for {
			if _, err := s.engine.Sweep(ctx); err != nil {
				s.logger.Error("sweep error", slog.Any("error", err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Close 停止掃描並等待進行中的結標完成
func (s *Sweeper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.logger.Info("closing sweeper")
	s.closed = true
	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info("sweeper closed")
}
