package auction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"gavel/models"
)

// transitions 列出所有合法的狀態轉移，終止狀態沒有出口
var transitions = map[models.AuctionStatus][]models.AuctionStatus{
	models.AuctionStatusDraft:     {models.AuctionStatusScheduled, models.AuctionStatusCancelled},
	models.AuctionStatusScheduled: {models.AuctionStatusLive, models.AuctionStatusCancelled},
	models.AuctionStatusLive:      {models.AuctionStatusEndedSold, models.AuctionStatusEndedUnsold, models.AuctionStatusCancelled},
}

// CanTransition 判斷 from -> to 是否在狀態機中
func CanTransition(from, to models.AuctionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionParams 狀態轉移時需要的額外資訊
type TransitionParams struct {
	Now time.Time
	// WinnerID / FinalBid 只在轉移到 ended_sold 時使用
	WinnerID *uuid.UUID
	FinalBid *int64
	// Override 允許管理員取消已經有出價的拍賣
	Override bool
	Reason   string
}

// Transition 檢查守衛條件並回傳轉移後的拍賣，不會修改傳入的拍賣
func Transition(a *models.Auction, to models.AuctionStatus, params TransitionParams) (models.Auction, error) {
	const op = "Transition"
	next := *a
	if !CanTransition(a.Status, to) {
		return next, fmt.Errorf("[%s] %s -> %s, err=%w", op, a.Status, to, ErrInvalidTransition)
	}
	guardErr := func(msg string) error {
		return fmt.Errorf("[%s] %s -> %s: %s, err=%w", op, a.Status, to, msg, ErrInvalidTransition)
	}

	switch to {
	case models.AuctionStatusScheduled:
		if !a.EndTime.After(a.StartTime) {
			return next, guardErr("end time must be after start time")
		}
	case models.AuctionStatusLive:
		if params.Now.Before(a.StartTime) {
			return next, guardErr("auction window has not opened")
		}
	case models.AuctionStatusEndedSold:
		if params.WinnerID == nil || params.FinalBid == nil {
			return next, guardErr("a resolved winner is required")
		}
		next.WinnerID = params.WinnerID
		next.FinalBid = params.FinalBid
		next.ClosedAt = &params.Now
	case models.AuctionStatusEndedUnsold:
		if params.WinnerID != nil {
			return next, guardErr("winner must be empty")
		}
		next.WinnerID = nil
		next.FinalBid = nil
		next.ClosedAt = &params.Now
	case models.AuctionStatusCancelled:
		if a.Status == models.AuctionStatusLive && a.BidCount > 0 && !params.Override {
			return next, guardErr("live auction with bids requires an administrative override")
		}
		next.CancelReason = params.Reason
		next.ClosedAt = &params.Now
	}
	next.Status = to
	return next, nil
}
