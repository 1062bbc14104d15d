//go:generate mockgen -package=auction -destination=mock.go -source=interfaces.go

package auction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gavel/models"
)

// IStore 定義了拍賣引擎對儲存層的需求
//
// 對 Auction 的所有寫入都必須透過 UpdateAuction / AppendBid 兩個條件更新完成，
// 兩者在 expectedVersion 與儲存中的版本不同時回傳 ErrVersionConflict，
// 成功時會把 next.Version 設為新的版本。
type IStore interface {
	CreateAuction(ctx context.Context, auction *models.Auction) error
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	UpdateAuction(ctx context.Context, expectedVersion int64, next *models.Auction) error
	// AppendBid 原子性地新增出價紀錄並推進拍賣的出價摘要
	AppendBid(ctx context.Context, expectedVersion int64, next *models.Auction, bid *models.Bid) error

	// TopBid 依 (amount desc, placed_at asc) 取出最高的出價，沒有出價時回傳 nil
	TopBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error)

	// ListDueAuctions 取出 status = live 且 end_time <= now 的拍賣
	ListDueAuctions(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
	// ListActivatable 取出 status = scheduled 且 start_time <= now 的拍賣
	ListActivatable(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
	// ListUnreconciled 取出 status = ended_sold 但還沒有 WonAuction 的拍賣
	ListUnreconciled(ctx context.Context, limit int) ([]models.Auction, error)

	GetWonAuction(ctx context.Context, auctionID uuid.UUID) (*models.WonAuction, error)
	// CreateWonAuction 只會建立一次，重複建立時回傳已存在的紀錄
	CreateWonAuction(ctx context.Context, won *models.WonAuction) (*models.WonAuction, error)

	FindOrderByAuction(ctx context.Context, auctionID uuid.UUID) (*models.Order, error)
	// CreateOrder 以 auction_id 為唯一鍵，重複建立時回傳已存在的訂單
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
}

// INotifier 接收引擎發出的事件，負責後續的投遞
type INotifier interface {
	Notify(ctx context.Context, event models.Event) error
}

// ILocker 提供以 key 區分的互斥鎖
// 鎖已被其他人持有時回傳 ErrLockBusy，不會等待
type ILocker interface {
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}

// IEventArchive 用於保存已送出的事件
type IEventArchive interface {
	ArchiveEvent(ctx context.Context, event models.Event) error
}
