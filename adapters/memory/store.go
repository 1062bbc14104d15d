package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"gavel/auction"
	"gavel/models"
)

// Store 是 auction.IStore 的記憶體實作，用於開發與測試
// 所有讀寫都回傳複本，呼叫端修改回傳值不會影響儲存的資料
type Store struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]models.Auction
	bids     map[uuid.UUID][]models.Bid
	won      map[uuid.UUID]models.WonAuction
	orders   map[uuid.UUID]models.Order
	events   []models.Event
}

func NewStore() *Store {
	return &Store{
		auctions: make(map[uuid.UUID]models.Auction),
		bids:     make(map[uuid.UUID][]models.Bid),
		won:      make(map[uuid.UUID]models.WonAuction),
		orders:   make(map[uuid.UUID]models.Order),
	}
}

func (s *Store) CreateAuction(ctx context.Context, a *models.Auction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[a.ID]; ok {
		return auction.ErrInvalidAuction
	}
	now := time.Now()
	a.Version = 1
	a.CreatedAt = now
	a.UpdatedAt = now
	s.auctions[a.ID] = cloneAuction(*a)
	return nil
}

func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, auction.ErrAuctionNotFound
	}
	a = cloneAuction(a)
	return &a, nil
}

func (s *Store) UpdateAuction(ctx context.Context, expectedVersion int64, next *models.Auction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.casLocked(expectedVersion, next)
}

func (s *Store) AppendBid(ctx context.Context, expectedVersion int64, next *models.Auction, bid *models.Bid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.casLocked(expectedVersion, next); err != nil {
		return err
	}
	s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], *bid)
	return nil
}

func (s *Store) casLocked(expectedVersion int64, next *models.Auction) error {
	current, ok := s.auctions[next.ID]
	if !ok {
		return auction.ErrAuctionNotFound
	}
	if current.Version != expectedVersion {
		return auction.ErrVersionConflict
	}
	next.Version = expectedVersion + 1
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now()
	s.auctions[next.ID] = cloneAuction(*next)
	return nil
}

func (s *Store) TopBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	bids, err := s.ListBids(ctx, auctionID)
	if err != nil || len(bids) == 0 {
		return nil, err
	}
	return &bids[0], nil
}

// ListBids 依 (amount desc, placed_at asc) 排序
func (s *Store) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	bids := slices.Clone(s.bids[auctionID])
	s.mu.RUnlock()
	slices.SortStableFunc(bids, func(a, b models.Bid) int {
		switch {
		case a.Amount > b.Amount:
			return -1
		case a.Amount < b.Amount:
			return 1
		}
		return a.PlacedAt.Compare(b.PlacedAt)
	})
	return bids, nil
}

func (s *Store) ListDueAuctions(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	return s.filter(ctx, limit, func(a models.Auction) bool {
		return a.Status == models.AuctionStatusLive && !a.EndTime.After(now)
	}, func(a, b models.Auction) int { return a.EndTime.Compare(b.EndTime) })
}

func (s *Store) ListActivatable(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	return s.filter(ctx, limit, func(a models.Auction) bool {
		return a.Status == models.AuctionStatusScheduled && !a.StartTime.After(now)
	}, func(a, b models.Auction) int { return a.StartTime.Compare(b.StartTime) })
}

func (s *Store) ListUnreconciled(ctx context.Context, limit int) ([]models.Auction, error) {
	s.mu.RLock()
	won := make(map[uuid.UUID]struct{}, len(s.won))
	for id := range s.won {
		won[id] = struct{}{}
	}
	s.mu.RUnlock()
	return s.filter(ctx, limit, func(a models.Auction) bool {
		_, ok := won[a.ID]
		return a.Status == models.AuctionStatusEndedSold && !ok
	}, func(a, b models.Auction) int { return a.EndTime.Compare(b.EndTime) })
}

func (s *Store) filter(ctx context.Context, limit int, match func(models.Auction) bool, cmp func(a, b models.Auction) int) ([]models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	result := make([]models.Auction, 0)
	for _, a := range s.auctions {
		if match(a) {
			result = append(result, cloneAuction(a))
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(result, cmp)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) GetWonAuction(ctx context.Context, auctionID uuid.UUID) (*models.WonAuction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	won, ok := s.won[auctionID]
	if !ok {
		return nil, nil
	}
	return &won, nil
}

func (s *Store) CreateWonAuction(ctx context.Context, won *models.WonAuction) (*models.WonAuction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.won[won.AuctionID]; ok {
		return &existing, nil
	}
	created := *won
	created.CreatedAt = time.Now()
	s.won[won.AuctionID] = created
	return &created, nil
}

func (s *Store) FindOrderByAuction(ctx context.Context, auctionID uuid.UUID) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[auctionID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.orders[order.AuctionID]; ok {
		return &existing, nil
	}
	created := *order
	created.CreatedAt = time.Now()
	s.orders[order.AuctionID] = created
	return &created, nil
}

// ArchiveEvent 實作 auction.IEventArchive，同一個事件 ID 只保存一次
func (s *Store) ArchiveEvent(ctx context.Context, event models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.events, func(e models.Event) bool { return e.ID == event.ID }) {
		return nil
	}
	s.events = append(s.events, event)
	return nil
}

// ListEvents 依發生時間列出拍賣的歷史事件
func (s *Store) ListEvents(ctx context.Context, auctionID uuid.UUID) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]models.Event, 0)
	for _, e := range s.events {
		if e.AuctionID == auctionID {
			events = append(events, e)
		}
	}
	slices.SortStableFunc(events, func(a, b models.Event) int { return a.OccurredAt.Compare(b.OccurredAt) })
	return events, nil
}

// Orders 回傳所有訂單
func (s *Store) Orders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order)
	}
	return orders
}

func cloneAuction(a models.Auction) models.Auction {
	a.ReservePrice = clonePtr(a.ReservePrice)
	a.CurrentBidderID = clonePtr(a.CurrentBidderID)
	a.WinnerID = clonePtr(a.WinnerID)
	a.FinalBid = clonePtr(a.FinalBid)
	a.ClosedAt = clonePtr(a.ClosedAt)
	return a
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
