package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"gavel/auction"
	"gavel/models"
)

type errorResponse struct {
	Message string `json:"message"`
}

type createAuctionRequest struct {
	ListingID       uuid.UUID `json:"listingId"`
	SellerID        uuid.UUID `json:"sellerId"`
	StartingPrice   int64     `json:"startingPrice" binding:"required"`
	ReservePrice    *int64    `json:"reservePrice"`
	MinBidIncrement *int64    `json:"minBidIncrement"`
	StartTime       time.Time `json:"startTime" binding:"required"`
	EndTime         time.Time `json:"endTime" binding:"required"`
	// Schedule 建立後直接排程
	Schedule bool `json:"schedule"`
}

// auctionResponse 拍賣的公開資訊，不包含底價金額
type auctionResponse struct {
	ID              uuid.UUID            `json:"id"`
	ListingID       uuid.UUID            `json:"listingId"`
	SellerID        uuid.UUID            `json:"sellerId"`
	Status          models.AuctionStatus `json:"status"`
	StartingPrice   int64                `json:"startingPrice"`
	MinBidIncrement int64                `json:"minBidIncrement"`
	HasReserve      bool                 `json:"hasReserve"`
	ReserveMet      bool                 `json:"reserveMet"`
	CurrentBid      int64                `json:"currentBid"`
	CurrentBidderID *uuid.UUID           `json:"currentBidderId,omitempty"`
	BidCount        int64                `json:"bidCount"`
	MinimumNextBid  int64                `json:"minimumNextBid"`
	StartTime       time.Time            `json:"startTime"`
	EndTime         time.Time            `json:"endTime"`
	ExtensionCount  int                  `json:"extensionCount"`
	WinnerID        *uuid.UUID           `json:"winnerId,omitempty"`
	FinalBid        *int64               `json:"finalBid,omitempty"`
	ClosedAt        *time.Time           `json:"closedAt,omitempty"`
	CancelReason    string               `json:"cancelReason,omitempty"`
	Version         int64                `json:"version"`
}

func newAuctionResponse(a *models.Auction) auctionResponse {
	return auctionResponse{
		ID:              a.ID,
		ListingID:       a.ListingID,
		SellerID:        a.SellerID,
		Status:          a.Status,
		StartingPrice:   a.StartingPrice,
		MinBidIncrement: a.MinBidIncrement,
		HasReserve:      a.HasReserve(),
		ReserveMet:      a.ReserveMet(),
		CurrentBid:      a.CurrentBid,
		CurrentBidderID: a.CurrentBidderID,
		BidCount:        a.BidCount,
		MinimumNextBid:  auction.MinimumNextBid(a),
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		ExtensionCount:  a.ExtensionCount,
		WinnerID:        a.WinnerID,
		FinalBid:        a.FinalBid,
		ClosedAt:        a.ClosedAt,
		CancelReason:    a.CancelReason,
		Version:         a.Version,
	}
}

type bidResponse struct {
	ID       uuid.UUID `json:"id"`
	BidderID uuid.UUID `json:"bidderId"`
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"placedAt"`
}

func newBidResponses(bids []models.Bid) []bidResponse {
	return lo.Map(bids, func(b models.Bid, _ int) bidResponse {
		return bidResponse{ID: b.ID, BidderID: b.BidderID, Amount: b.Amount, PlacedAt: b.PlacedAt}
	})
}

type placeBidRequest struct {
	BidderID uuid.UUID `json:"bidderId"`
	Amount   int64     `json:"amount" binding:"required,max=1000000000000000"`
}

type placeBidResponse struct {
	Accepted       bool       `json:"accepted"`
	Reason         string     `json:"reason,omitempty"`
	BidID          *uuid.UUID `json:"bidId,omitempty"`
	CurrentBid     int64      `json:"currentBid"`
	MinimumNextBid int64      `json:"minimumNextBid"`
	EndTime        time.Time  `json:"endTime"`
	Extended       bool       `json:"extended"`
}

func newPlaceBidResponse(result *auction.BidResult) placeBidResponse {
	resp := placeBidResponse{
		Accepted:       result.Accepted,
		Reason:         string(result.Reason),
		CurrentBid:     result.CurrentBid,
		MinimumNextBid: result.MinimumNextBid,
		EndTime:        result.EndTime,
		Extended:       result.Extended,
	}
	if result.Bid != nil {
		resp.BidID = lo.ToPtr(result.Bid.ID)
	}
	return resp
}

type cancelAuctionRequest struct {
	Override bool   `json:"override"`
	Reason   string `json:"reason"`
}

type outcomeResponse struct {
	AuctionID uuid.UUID             `json:"auctionId"`
	Status    auction.OutcomeStatus `json:"status"`
	OrderID   *uuid.UUID            `json:"orderId,omitempty"`
	Error     string                `json:"error,omitempty"`
}

func newOutcomeResponse(o auction.Outcome) outcomeResponse {
	resp := outcomeResponse{AuctionID: o.AuctionID, Status: o.Status, OrderID: o.OrderID}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}

type sweepResponse struct {
	Activated int               `json:"activated"`
	Closed    int               `json:"closed"`
	Skipped   int               `json:"skipped"`
	Errored   int               `json:"errored"`
	Outcomes  []outcomeResponse `json:"outcomes"`
}

func newSweepResponse(s *auction.SweepSummary) sweepResponse {
	return sweepResponse{
		Activated: s.Activated,
		Closed:    s.Closed,
		Skipped:   s.Skipped,
		Errored:   s.Errored,
		Outcomes:  lo.Map(s.Outcomes, func(o auction.Outcome, _ int) outcomeResponse { return newOutcomeResponse(o) }),
	}
}

type orderResponse struct {
	ID           uuid.UUID          `json:"id"`
	AuctionID    uuid.UUID          `json:"auctionId"`
	BuyerID      uuid.UUID          `json:"buyerId"`
	SellerID     uuid.UUID          `json:"sellerId"`
	WinningBidID uuid.UUID          `json:"winningBidId"`
	Amount       int64              `json:"amount"`
	Total        string             `json:"total"`
	Currency     string             `json:"currency"`
	Status       models.OrderStatus `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func newOrderResponse(o *models.Order) orderResponse {
	return orderResponse{
		ID:           o.ID,
		AuctionID:    o.AuctionID,
		BuyerID:      o.BuyerID,
		SellerID:     o.SellerID,
		WinningBidID: o.WinningBidID,
		Amount:       o.Amount,
		Total:        o.Total.String(),
		Currency:     o.Currency,
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
	}
}
