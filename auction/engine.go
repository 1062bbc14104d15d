package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gavel/models"
)

// Engine 負責出價、拍賣狀態轉移與結標
// 可以同時被多個請求與結標掃描呼叫，所有對拍賣的寫入都透過儲存層的條件更新
type Engine struct {
	store       IStore
	notifier    INotifier
	materialize *Materializer
	logger      *slog.Logger
	options     engineOptions
}

func NewEngine(store IStore, notifier INotifier, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}

	// 默認選項
	options := defaultEngineOptions()

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}
	if options.locker == nil {
		options.locker = NewLocalLocker()
	}
	if options.sweepWorkers < 1 {
		options.sweepWorkers = 1
	}
	if options.maxBidRetries < 0 {
		options.maxBidRetries = 0
	}
	if options.sweepBatchSize < 1 {
		options.sweepBatchSize = defaultEngineOptions().sweepBatchSize
	}
	if options.currency == "" {
		options.currency = defaultEngineOptions().currency
	}

	return &Engine{
		store:       store,
		notifier:    notifier,
		materialize: NewMaterializer(store, options.currency, options.priceExponent),
		logger:      options.logger.With(slog.String("caller", "AuctionEngine")),
		options:     options,
	}, nil
}

func (e *Engine) now() time.Time {
	return e.options.clock()
}

// CreateAuctionParams 建立拍賣需要的條件
type CreateAuctionParams struct {
	ListingID       uuid.UUID
	SellerID        uuid.UUID
	StartingPrice   int64
	ReservePrice    *int64
	MinBidIncrement int64
	StartTime       time.Time
	EndTime         time.Time
}

func (p CreateAuctionParams) validate() error {
	switch {
	case p.ListingID == uuid.Nil || p.SellerID == uuid.Nil:
		return fmt.Errorf("listing and seller are required, err=%w", ErrInvalidAuction)
	case p.StartingPrice < 1:
		return fmt.Errorf("starting price must be positive, err=%w", ErrInvalidAuction)
	case p.MinBidIncrement < 1:
		return fmt.Errorf("minimum bid increment must be positive, err=%w", ErrInvalidAuction)
	case p.StartingPrice > MaxAmount || p.MinBidIncrement > MaxAmount || (p.ReservePrice != nil && *p.ReservePrice > MaxAmount):
		return fmt.Errorf("amount must not exceed %d, err=%w", MaxAmount, ErrInvalidAuction)
	case p.ReservePrice != nil && *p.ReservePrice < p.StartingPrice:
		return fmt.Errorf("reserve price must not be lower than starting price, err=%w", ErrInvalidAuction)
	case !p.EndTime.After(p.StartTime):
		return fmt.Errorf("end time must be after start time, err=%w", ErrInvalidAuction)
	}
	return nil
}

// CreateAuction 建立一場 draft 狀態的拍賣
func (e *Engine) CreateAuction(ctx context.Context, params CreateAuctionParams) (*models.Auction, error) {
	const op = "CreateAuction"
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("[%s] %w", op, err)
	}
	auction := &models.Auction{
		ID:              uuid.Must(uuid.NewV7()),
		ListingID:       params.ListingID,
		SellerID:        params.SellerID,
		StartingPrice:   params.StartingPrice,
		ReservePrice:    params.ReservePrice,
		MinBidIncrement: params.MinBidIncrement,
		StartTime:       params.StartTime,
		EndTime:         params.EndTime,
		Status:          models.AuctionStatusDraft,
	}
	if err := e.store.CreateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("[%s] Fail to create auction, err=%w", op, err)
	}
	return auction, nil
}

func (e *Engine) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return e.store.GetAuction(ctx, id)
}

func (e *Engine) ListBids(ctx context.Context, id uuid.UUID) ([]models.Bid, error) {
	if _, err := e.store.GetAuction(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListBids(ctx, id)
}

// FindOrder 回傳拍賣對應的訂單，還沒有訂單時回傳 nil
func (e *Engine) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if _, err := e.store.GetAuction(ctx, id); err != nil {
		return nil, err
	}
	return e.store.FindOrderByAuction(ctx, id)
}

// Schedule draft -> scheduled
func (e *Engine) Schedule(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return e.transition(ctx, id, models.AuctionStatusScheduled, TransitionParams{})
}

// Activate scheduled -> live，需要 now >= StartTime
func (e *Engine) Activate(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return e.transition(ctx, id, models.AuctionStatusLive, TransitionParams{})
}

// Cancel 由管理員取消拍賣，已經有出價的進行中拍賣需要 override
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID, override bool, reason string) (*models.Auction, error) {
	auction, err := e.transition(ctx, id, models.AuctionStatusCancelled, TransitionParams{Override: override, Reason: reason})
	if err != nil {
		return nil, err
	}
	e.emit(ctx, models.NewAuctionCancelledEvent(auction.ID, auction.SellerID, e.now()))
	return auction, nil
}

// transition 讀取最新的拍賣並透過條件更新完成狀態轉移，版本衝突時重新讀取
func (e *Engine) transition(ctx context.Context, id uuid.UUID, to models.AuctionStatus, params TransitionParams) (*models.Auction, error) {
	const op = "transition"
	for attempt := 0; ; attempt++ {
		current, err := e.store.GetAuction(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to get auction, err=%w", op, err)
		}
		params.Now = e.now()
		next, err := Transition(current, to, params)
		if err != nil {
			return nil, err
		}
		err = e.store.UpdateAuction(ctx, current.Version, &next)
		if errors.Is(err, ErrVersionConflict) && attempt < e.options.maxBidRetries {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to update auction, err=%w", op, err)
		}
		e.logger.Info("Auction status changed",
			slog.String("auctionID", id.String()),
			slog.String("from", string(current.Status)),
			slog.String("to", string(to)))
		return &next, nil
	}
}

// emit 送出事件，送出失敗只記錄不影響已經完成的狀態變更
func (e *Engine) emit(ctx context.Context, events ...models.Event) {
	for _, event := range events {
		if err := e.notifier.Notify(ctx, event); err != nil {
			e.logger.Error("Fail to emit event",
				slog.String("auctionID", event.AuctionID.String()),
				slog.String("kind", string(event.Kind)),
				slog.Any("error", err))
		}
	}
}
