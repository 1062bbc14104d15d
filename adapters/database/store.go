package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gavel/auction"
	"gavel/models"
)

type storeOptions struct {
	logger *slog.Logger
}

type StoreOption func(*storeOptions)

// WithStoreLogger 設置日誌記錄器
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// Store 以 gorm 實作 auction.IStore 與 auction.IEventArchive
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, opts ...StoreOption) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	// 默認選項
	options := storeOptions{
		logger: slog.Default(),
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	return &Store{
		db:     db,
		logger: options.logger.With(slog.String("caller", "DatabaseStore")),
	}, nil
}

// Migrate 建立或更新資料表
func (s *Store) Migrate(ctx context.Context) error {
	const op = "Migrate"
	if err := s.db.WithContext(ctx).AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("[%s] Fail to migrate, err=%w", op, err)
	}
	return nil
}

func (s *Store) CreateAuction(ctx context.Context, a *models.Auction) error {
	const op = "CreateAuction"
	a.Version = 1
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("[%s] Fail to create auction, err=%w", op, err)
	}
	return nil
}

func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return s.getAuction(s.db.WithContext(ctx), id)
}

func (s *Store) getAuction(tx *gorm.DB, id uuid.UUID) (*models.Auction, error) {
	const op = "GetAuction"
	var a models.Auction
	if err := tx.Where("id = ?", id).Take(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auction.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("[%s] Fail to find auction, err=%w", op, err)
	}
	return &a, nil
}

func (s *Store) UpdateAuction(ctx context.Context, expectedVersion int64, next *models.Auction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.compareAndSwap(tx, expectedVersion, next)
	})
}

// AppendBid 在同一個交易中推進拍賣摘要並新增出價紀錄
func (s *Store) AppendBid(ctx context.Context, expectedVersion int64, next *models.Auction, bid *models.Bid) error {
	const op = "AppendBid"
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.compareAndSwap(tx, expectedVersion, next); err != nil {
			return err
		}
		if err := tx.Create(bid).Error; err != nil {
			return fmt.Errorf("[%s] Fail to create bid, err=%w", op, err)
		}
		return nil
	})
}

// compareAndSwap 只有在版本相同時才更新，沒有更新到任何資料時分辨是拍賣不存在還是版本衝突
func (s *Store) compareAndSwap(tx *gorm.DB, expectedVersion int64, next *models.Auction) error {
	const op = "compareAndSwap"
	now := time.Now()
	result := tx.Model(&models.Auction{}).
		Where("id = ? AND version = ?", next.ID, expectedVersion).
		Updates(map[string]any{
			"status":            next.Status,
			"start_time":        next.StartTime,
			"end_time":          next.EndTime,
			"extension_count":   next.ExtensionCount,
			"current_bid":       next.CurrentBid,
			"current_bidder_id": nullable(next.CurrentBidderID),
			"bid_count":         next.BidCount,
			"winner_id":         nullable(next.WinnerID),
			"final_bid":         nullable(next.FinalBid),
			"closed_at":         nullable(next.ClosedAt),
			"cancel_reason":     next.CancelReason,
			"version":           expectedVersion + 1,
			"updated_at":        now,
		})
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to update auction, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Auction{}).Where("id = ?", next.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("[%s] Fail to check auction, err=%w", op, err)
		}
		if count == 0 {
			return auction.ErrAuctionNotFound
		}
		return auction.ErrVersionConflict
	}
	next.Version = expectedVersion + 1
	next.UpdatedAt = now
	return nil
}

func (s *Store) TopBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	const op = "TopBid"
	var bid models.Bid
	err := s.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order(clause.OrderBy{Columns: bidOrder}).
		Take(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to find top bid, err=%w", op, err)
	}
	return &bid, nil
}

func (s *Store) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	const op = "ListBids"
	var bids []models.Bid
	err := s.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order(clause.OrderBy{Columns: bidOrder}).
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to list bids, err=%w", op, err)
	}
	return bids, nil
}

var bidOrder = []clause.OrderByColumn{
	{Column: clause.Column{Name: "amount"}, Desc: true},
	{Column: clause.Column{Name: "placed_at"}},
	{Column: clause.Column{Name: "id"}},
}

func (s *Store) ListDueAuctions(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	const op = "ListDueAuctions"
	var auctions []models.Auction
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", models.AuctionStatusLive, now).
		Order("end_time").
		Limit(limit).
		Find(&auctions).Error
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to list due auctions, err=%w", op, err)
	}
	return auctions, nil
}

func (s *Store) ListActivatable(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	const op = "ListActivatable"
	var auctions []models.Auction
	err := s.db.WithContext(ctx).
		Where("status = ? AND start_time <= ?", models.AuctionStatusScheduled, now).
		Order("start_time").
		Limit(limit).
		Find(&auctions).Error
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to list activatable auctions, err=%w", op, err)
	}
	return auctions, nil
}

func (s *Store) ListUnreconciled(ctx context.Context, limit int) ([]models.Auction, error) {
	const op = "ListUnreconciled"
	db := s.db.WithContext(ctx)
	var auctions []models.Auction
	err := db.
		Where("status = ?", models.AuctionStatusEndedSold).
		Where("id NOT IN (?)", db.Model(&models.WonAuction{}).Select("auction_id")).
		Order("end_time").
		Limit(limit).
		Find(&auctions).Error
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to list unreconciled auctions, err=%w", op, err)
	}
	return auctions, nil
}

func (s *Store) GetWonAuction(ctx context.Context, auctionID uuid.UUID) (*models.WonAuction, error) {
	const op = "GetWonAuction"
	var won models.WonAuction
	err := s.db.WithContext(ctx).Where("auction_id = ?", auctionID).Take(&won).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to find won auction, err=%w", op, err)
	}
	return &won, nil
}

func (s *Store) CreateWonAuction(ctx context.Context, won *models.WonAuction) (*models.WonAuction, error) {
	const op = "CreateWonAuction"
	err := s.db.WithContext(ctx).Create(won).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		s.logger.Warn("Won auction already exists", slog.String("auctionID", won.AuctionID.String()))
		return s.GetWonAuction(ctx, won.AuctionID)
	}
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create won auction, err=%w", op, err)
	}
	return won, nil
}

func (s *Store) FindOrderByAuction(ctx context.Context, auctionID uuid.UUID) (*models.Order, error) {
	const op = "FindOrderByAuction"
	var order models.Order
	err := s.db.WithContext(ctx).Where("auction_id = ?", auctionID).Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to find order, err=%w", op, err)
	}
	return &order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	const op = "CreateOrder"
	err := s.db.WithContext(ctx).Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		s.logger.Warn("Order already exists", slog.String("auctionID", order.AuctionID.String()))
		return s.FindOrderByAuction(ctx, order.AuctionID)
	}
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create order, err=%w", op, err)
	}
	return order, nil
}

// ArchiveEvent 以 msgpack 保存事件，重複的事件 ID 會被忽略
func (s *Store) ArchiveEvent(ctx context.Context, event models.Event) error {
	const op = "ArchiveEvent"
	payload, err := msgpack.Marshal(event)
	if err != nil {
		return fmt.Errorf("[%s] Fail to marshal event, err=%w", op, err)
	}
	record := models.AuctionEvent{
		ID:         event.ID,
		AuctionID:  event.AuctionID,
		Kind:       event.Kind,
		Payload:    payload,
		OccurredAt: event.OccurredAt,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("[%s] Fail to archive event, err=%w", op, err)
	}
	return nil
}

// ListEvents 依發生時間列出拍賣的歷史事件
func (s *Store) ListEvents(ctx context.Context, auctionID uuid.UUID) ([]models.Event, error) {
	const op = "ListEvents"
	var records []models.AuctionEvent
	err := s.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("occurred_at").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to list events, err=%w", op, err)
	}
	events := make([]models.Event, 0, len(records))
	for _, record := range records {
		var event models.Event
		if err := msgpack.Unmarshal(record.Payload, &event); err != nil {
			return nil, fmt.Errorf("[%s] Fail to unmarshal event %s, err=%w", op, record.ID, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
