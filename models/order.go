package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
)

// Order 代表由得標結果產生的訂單
// 付款與出貨由下游系統處理
type Order struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;<-:create"`
	AuctionID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex;<-:create"`
	ListingID    uuid.UUID       `gorm:"type:uuid;not null;<-:create"`
	BuyerID      uuid.UUID       `gorm:"type:uuid;not null;<-:create"`
	SellerID     uuid.UUID       `gorm:"type:uuid;not null;<-:create"`
	WinningBidID uuid.UUID       `gorm:"type:uuid;not null;<-:create"`
	Amount       int64           `gorm:"type:bigint;not null;<-:create"`
	Total        decimal.Decimal `gorm:"type:numeric(20,4);not null;<-:create"`
	Currency     string          `gorm:"type:varchar(8);not null;<-:create"`
	Status       OrderStatus     `gorm:"type:varchar(32);not null"`
	CreatedAt    time.Time
}
