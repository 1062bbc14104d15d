package auction

import (
	"errors"
	"fmt"
)

var (
	ErrAuctionNotFound   = errors.New("auction not found")
	ErrVersionConflict   = errors.New("auction version conflict")
	ErrInvalidTransition = errors.New("invalid auction status transition")
	ErrInvalidAuction    = errors.New("invalid auction terms")
	ErrLockBusy          = errors.New("lock is held by another worker")
)

// RejectReason 出價被拒絕的原因
type RejectReason string

const (
	ReasonAuctionNotLive RejectReason = "AuctionNotLive"
	ReasonBidTooLow      RejectReason = "BidTooLow"
	ReasonSelfOutbid     RejectReason = "SelfOutbid"
	ReasonSellerBidding  RejectReason = "SellerBidding"
	// ReasonSuperseded 重試次數用完仍然搶不到更新，呼叫端應該重新送出
	ReasonSuperseded RejectReason = "Superseded"
)

// RejectionError 代表使用者輸入造成的出價拒絕，不是系統錯誤
type RejectionError struct {
	Reason RejectReason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("bid rejected: %s", e.Reason)
}

// ReasonOf 取出 err 中的拒絕原因，不是 RejectionError 時回傳空字串
func ReasonOf(err error) RejectReason {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Reason
	}
	return ""
}
