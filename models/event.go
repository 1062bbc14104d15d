package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind 拍賣事件的種類
type EventKind string

const (
	EventKindBidPlaced        EventKind = "bid_placed"
	EventKindOutbid           EventKind = "outbid"
	EventKindAuctionExtended  EventKind = "auction_extended"
	EventKindAuctionWon       EventKind = "auction_won"
	EventKindAuctionUnsold    EventKind = "auction_unsold"
	EventKindAuctionCancelled EventKind = "auction_cancelled"
)

// IsFinal 事件之後這場拍賣不會再有其他事件
func (k EventKind) IsFinal() bool {
	switch k {
	case EventKindAuctionWon, EventKindAuctionUnsold, EventKindAuctionCancelled:
		return true
	}
	return false
}

// Event 是引擎送給通知端的結構化事件
// 引擎只保證事件有送出，不保證送達
type Event struct {
	ID               uuid.UUID  `json:"id" msgpack:"id"`
	Kind             EventKind  `json:"kind" msgpack:"kind"`
	AuctionID        uuid.UUID  `json:"auctionId" msgpack:"auction_id"`
	BidderID         *uuid.UUID `json:"bidderId,omitempty" msgpack:"bidder_id,omitempty"`
	PreviousBidderID *uuid.UUID `json:"previousBidderId,omitempty" msgpack:"previous_bidder_id,omitempty"`
	WinnerID         *uuid.UUID `json:"winnerId,omitempty" msgpack:"winner_id,omitempty"`
	SellerID         *uuid.UUID `json:"sellerId,omitempty" msgpack:"seller_id,omitempty"`
	Amount           int64      `json:"amount,omitempty" msgpack:"amount,omitempty"`
	EndTime          *time.Time `json:"endTime,omitempty" msgpack:"end_time,omitempty"`
	OccurredAt       time.Time  `json:"occurredAt" msgpack:"occurred_at"`
}

func newEvent(kind EventKind, auctionID uuid.UUID, at time.Time) Event {
	return Event{
		ID:         uuid.Must(uuid.NewV7()),
		Kind:       kind,
		AuctionID:  auctionID,
		OccurredAt: at,
	}
}

// NewBidPlacedEvent 有新的最高出價
func NewBidPlacedEvent(auctionID, bidderID uuid.UUID, amount int64, endTime time.Time, at time.Time) Event {
	e := newEvent(EventKindBidPlaced, auctionID, at)
	e.BidderID = &bidderID
	e.Amount = amount
	e.EndTime = &endTime
	return e
}

// NewOutbidEvent 通知前一位最高出價者已被超越
func NewOutbidEvent(auctionID, previousBidderID uuid.UUID, newBid int64, at time.Time) Event {
	e := newEvent(EventKindOutbid, auctionID, at)
	e.PreviousBidderID = &previousBidderID
	e.Amount = newBid
	return e
}

// NewAuctionExtendedEvent 拍賣因為尾盤出價而延長
func NewAuctionExtendedEvent(auctionID uuid.UUID, endTime time.Time, at time.Time) Event {
	e := newEvent(EventKindAuctionExtended, auctionID, at)
	e.EndTime = &endTime
	return e
}

// NewAuctionWonEvent 同時通知得標者與賣家
func NewAuctionWonEvent(auctionID, winnerID, sellerID uuid.UUID, finalBid int64, at time.Time) Event {
	e := newEvent(EventKindAuctionWon, auctionID, at)
	e.WinnerID = &winnerID
	e.SellerID = &sellerID
	e.Amount = finalBid
	return e
}

// NewAuctionUnsoldEvent 流標
func NewAuctionUnsoldEvent(auctionID uuid.UUID, at time.Time) Event {
	return newEvent(EventKindAuctionUnsold, auctionID, at)
}

func NewAuctionCancelledEvent(auctionID, sellerID uuid.UUID, at time.Time) Event {
	e := newEvent(EventKindAuctionCancelled, auctionID, at)
	e.SellerID = &sellerID
	return e
}

// AuctionEvent 事件的歸檔紀錄
type AuctionEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;<-:create"`
	AuctionID  uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	Kind       EventKind `gorm:"type:varchar(32);not null;<-:create"`
	Payload    []byte    `gorm:"type:bytea;not null;<-:create"`
	OccurredAt time.Time `gorm:"not null;<-:create"`
	CreatedAt  time.Time
}
