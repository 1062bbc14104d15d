package models

import (
	"time"

	"github.com/google/uuid"
)

// WonAuction 記錄一場拍賣的得標結果與對應的訂單
// 每場拍賣最多一筆，存在與否即代表結標流程是否已經完成
type WonAuction struct {
	AuctionID uuid.UUID `gorm:"type:uuid;primaryKey;<-:create"`
	WinnerID  uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	FinalBid  int64     `gorm:"type:bigint;not null;<-:create"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	CreatedAt time.Time
}
