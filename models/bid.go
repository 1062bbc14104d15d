package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid 代表拍賣的一筆出價紀錄
// 出價紀錄只會新增，不會修改或刪除
type Bid struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;<-:create"`
	AuctionID uuid.UUID `gorm:"type:uuid;not null;index:idx_bid_auction_amount_placed_at,priority:1;<-:create"`
	BidderID  uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	Amount    int64     `gorm:"type:bigint;not null;index:idx_bid_auction_amount_placed_at,priority:2,sort:desc;<-:create"`
	PlacedAt  time.Time `gorm:"not null;index:idx_bid_auction_amount_placed_at,priority:3;<-:create"`
}
