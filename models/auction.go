package models

import (
	"time"

	"github.com/google/uuid"
)

// AuctionStatus 拍賣的生命週期狀態
type AuctionStatus string

const (
	AuctionStatusDraft       AuctionStatus = "draft"
	AuctionStatusScheduled   AuctionStatus = "scheduled"
	AuctionStatusLive        AuctionStatus = "live"
	AuctionStatusEndedSold   AuctionStatus = "ended_sold"
	AuctionStatusEndedUnsold AuctionStatus = "ended_unsold"
	AuctionStatusCancelled   AuctionStatus = "cancelled"
)

// IsTerminal 判斷狀態是否已經是終止狀態
func (s AuctionStatus) IsTerminal() bool {
	switch s {
	case AuctionStatusEndedSold, AuctionStatusEndedUnsold, AuctionStatusCancelled:
		return true
	}
	return false
}

// Auction 代表一場有時間限制的拍賣
// 包含拍賣條件(起標價、底價、加價幅度、時間)以及由出價紀錄推導出來的目前最高出價
//
// CurrentBid / CurrentBidderID / BidCount 必須與 bids 表中最高的一筆出價一致，
// 所有寫入都必須帶著 Version 做條件更新。
type Auction struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey"`
	ListingID       uuid.UUID     `gorm:"type:uuid;not null;<-:create"`
	SellerID        uuid.UUID     `gorm:"type:uuid;not null;<-:create"`
	StartingPrice   int64         `gorm:"type:bigint;not null"`
	ReservePrice    *int64        `gorm:"type:bigint"`
	MinBidIncrement int64         `gorm:"type:bigint;not null"`
	StartTime       time.Time     `gorm:"not null;index:idx_auction_status_start_time,priority:2"`
	EndTime         time.Time     `gorm:"not null;index:idx_auction_status_end_time,priority:2"`
	ExtensionCount  int           `gorm:"type:integer;not null;default:0"`
	Status          AuctionStatus `gorm:"type:varchar(32);not null;index:idx_auction_status_end_time,priority:1;index:idx_auction_status_start_time,priority:1"`

	// 出價摘要
	CurrentBid      int64      `gorm:"type:bigint;not null;default:0"`
	CurrentBidderID *uuid.UUID `gorm:"type:uuid"`
	BidCount        int64      `gorm:"type:bigint;not null;default:0"`

	// 結標結果，只會在進入 ended_sold / ended_unsold 時設定一次
	WinnerID *uuid.UUID `gorm:"type:uuid"`
	FinalBid *int64     `gorm:"type:bigint"`
	ClosedAt *time.Time

	CancelReason string `gorm:"type:text;not null;default:''"`
	Version      int64  `gorm:"type:bigint;not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasReserve 是否設定了底價
func (a *Auction) HasReserve() bool {
	return a.ReservePrice != nil
}

// ReserveMet 目前最高出價是否已經達到底價(沒有底價時只要有出價就算達到)
func (a *Auction) ReserveMet() bool {
	if a.BidCount == 0 {
		return false
	}
	return a.ReservePrice == nil || a.CurrentBid >= *a.ReservePrice
}

// IsBiddingWindow 判斷 now 是否落在 [StartTime, EndTime) 之間
func (a *Auction) IsBiddingWindow(now time.Time) bool {
	return !now.Before(a.StartTime) && now.Before(a.EndTime)
}

// AllModels 回傳所有需要建立資料表的模型
func AllModels() []any {
	return []any{
		&Auction{},
		&Bid{},
		&WonAuction{},
		&Order{},
		&AuctionEvent{},
	}
}
