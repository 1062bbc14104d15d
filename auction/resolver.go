package auction

import (
	"fmt"

	"github.com/google/uuid"

	"gavel/models"
)

// Resolution 結標時的得標判定
type Resolution struct {
	HasWinner  bool
	WinnerID   uuid.UUID
	FinalBid   int64
	WinningBid *models.Bid
}

// ResolveWinner 依出價紀錄的最高出價判定是否有得標者
//
// 沒有出價，或設定了底價且最高出價低於底價時沒有得標者。
// 出價紀錄的最高出價必須與拍賣上的出價摘要一致，否則視為資料不一致並回傳錯誤。
func ResolveWinner(a *models.Auction, top *models.Bid) (Resolution, error) {
	const op = "ResolveWinner"
	if a.BidCount == 0 {
		if top != nil {
			return Resolution{}, fmt.Errorf("[%s] auction %s has no bid count but ledger has bid %s", op, a.ID, top.ID)
		}
		return Resolution{}, nil
	}
	if top == nil {
		return Resolution{}, fmt.Errorf("[%s] auction %s has %d bids but ledger is empty", op, a.ID, a.BidCount)
	}
	if a.CurrentBidderID == nil || top.Amount != a.CurrentBid || top.BidderID != *a.CurrentBidderID {
		return Resolution{}, fmt.Errorf("[%s] auction %s summary does not match top bid %s", op, a.ID, top.ID)
	}
	if a.ReservePrice != nil && top.Amount < *a.ReservePrice {
		return Resolution{}, nil
	}
	return Resolution{
		HasWinner:  true,
		WinnerID:   top.BidderID,
		FinalBid:   top.Amount,
		WinningBid: top,
	}, nil
}
