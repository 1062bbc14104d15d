package auction

import (
	"math"
	"time"

	"github.com/google/uuid"

	"gavel/models"
)

// MaxAmount 起標價、底價與加價幅度的上限（最小貨幣單位）
const MaxAmount int64 = 1_000_000_000_000_000

// BidCandidate 是一筆還沒被接受的出價
type BidCandidate struct {
	BidderID uuid.UUID
	Amount   int64
	Now      time.Time
}

// MinimumNextBid 回傳下一筆出價至少需要的金額
// 加價幅度小於 1 時視為 1，確保相同金額的出價不會並列最高
// 超過 int64 上限時停在 math.MaxInt64
func MinimumNextBid(a *models.Auction) int64 {
	if a.BidCount == 0 {
		return a.StartingPrice
	}
	increment := a.MinBidIncrement
	if increment < 1 {
		increment = 1
	}
	if a.CurrentBid > math.MaxInt64-increment {
		return math.MaxInt64
	}
	return a.CurrentBid + increment
}

// ValidateBid 判斷出價是否可以被接受，沒有任何副作用
// 接受時回傳 nil，拒絕時回傳 *RejectionError
func ValidateBid(a *models.Auction, c BidCandidate) error {
	if a.Status != models.AuctionStatusLive || !a.IsBiddingWindow(c.Now) {
		return &RejectionError{Reason: ReasonAuctionNotLive}
	}
	if c.BidderID == a.SellerID {
		return &RejectionError{Reason: ReasonSellerBidding}
	}
	if a.CurrentBidderID != nil && *a.CurrentBidderID == c.BidderID {
		return &RejectionError{Reason: ReasonSelfOutbid}
	}
	if c.Amount <= 0 || c.Amount < MinimumNextBid(a) || (a.BidCount > 0 && c.Amount <= a.CurrentBid) {
		return &RejectionError{Reason: ReasonBidTooLow}
	}
	return nil
}
