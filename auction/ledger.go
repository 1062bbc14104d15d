package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gavel/models"
)

type PlaceBidRequest struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    int64
}

// BidResult 出價結果，拒絕時 Reason 不為空
type BidResult struct {
	Accepted       bool
	Reason         RejectReason
	Bid            *models.Bid
	CurrentBid     int64
	MinimumNextBid int64
	EndTime        time.Time
	Extended       bool
}

// PlaceBid 驗證出價並以條件更新寫入出價紀錄
//
// 流程:
//   - 1. 讀取拍賣目前的狀態 (scheduled 且已到開始時間時順便轉為 live)
//   - 2. 驗證出價，不通過直接回傳拒絕原因
//   - 3. 在同一個條件更新中新增出價並推進最高出價，必要時延長結束時間
//   - 4. 版本衝突代表有其他出價搶先，重新讀取後再驗證一次，次數用完回傳 Superseded
//   - 5. 送出 bid_placed / outbid / auction_extended 事件
//
// 拍賣不存在時回傳 ErrAuctionNotFound，儲存層錯誤原樣回傳
func (e *Engine) PlaceBid(ctx context.Context, req PlaceBidRequest) (*BidResult, error) {
	const op = "PlaceBid"
	logger := e.logger.With(
		slog.String("auctionID", req.AuctionID.String()),
		slog.String("bidderID", req.BidderID.String()),
		slog.Int64("amount", req.Amount))

	var current *models.Auction
	for attempt := 0; attempt <= e.options.maxBidRetries; attempt++ {
		if attempt > 0 {
			if err := e.backoff(ctx, attempt); err != nil {
				return nil, fmt.Errorf("[%s] %w", op, err)
			}
		}
		var err error
		current, err = e.store.GetAuction(ctx, req.AuctionID)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to get auction, err=%w", op, err)
		}
		now := e.now()

		// 開始時間已到但還沒被掃描啟用的拍賣，直接在這裡啟用
		if current.Status == models.AuctionStatusScheduled && !now.Before(current.StartTime) {
			activated, err := Transition(current, models.AuctionStatusLive, TransitionParams{Now: now})
			if err != nil {
				return nil, fmt.Errorf("[%s] Fail to activate auction, err=%w", op, err)
			}
			err = e.store.UpdateAuction(ctx, current.Version, &activated)
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("[%s] Fail to activate auction, err=%w", op, err)
			}
			current = &activated
		}

		if err := ValidateBid(current, BidCandidate{BidderID: req.BidderID, Amount: req.Amount, Now: now}); err != nil {
			logger.Debug("Bid rejected", slog.String("reason", string(ReasonOf(err))))
			return rejected(current, ReasonOf(err)), nil
		}

		bid := &models.Bid{
			ID:        uuid.Must(uuid.NewV7()),
			AuctionID: current.ID,
			BidderID:  req.BidderID,
			Amount:    req.Amount,
			PlacedAt:  now,
		}
		next, extended := e.applyBid(current, bid, now)
		err = e.store.AppendBid(ctx, current.Version, &next, bid)
		if errors.Is(err, ErrVersionConflict) {
			logger.Debug("Bid lost the race, retrying", slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to append bid, err=%w", op, err)
		}

		logger.Info("Higher bid occurs", slog.Bool("extended", extended))
		events := []models.Event{models.NewBidPlacedEvent(next.ID, bid.BidderID, bid.Amount, next.EndTime, now)}
		if current.CurrentBidderID != nil {
			events = append(events, models.NewOutbidEvent(next.ID, *current.CurrentBidderID, bid.Amount, now))
		}
		if extended {
			events = append(events, models.NewAuctionExtendedEvent(next.ID, next.EndTime, now))
		}
		e.emit(ctx, events...)

		return &BidResult{
			Accepted:       true,
			Bid:            bid,
			CurrentBid:     next.CurrentBid,
			MinimumNextBid: MinimumNextBid(&next),
			EndTime:        next.EndTime,
			Extended:       extended,
		}, nil
	}

	logger.Warn("Bid retries exhausted", slog.Int("retries", e.options.maxBidRetries))
	return rejected(current, ReasonSuperseded), nil
}

// applyBid 回傳接受出價後的拍賣以及是否觸發了防狙擊延長
func (e *Engine) applyBid(current *models.Auction, bid *models.Bid, now time.Time) (models.Auction, bool) {
	next := *current
	next.CurrentBid = bid.Amount
	next.CurrentBidderID = &bid.BidderID
	next.BidCount++

	extended := false
	if e.options.extensionAmount > 0 &&
		next.ExtensionCount < e.options.maxExtensions &&
		next.EndTime.Sub(now) <= e.options.extensionWindow {
		next.EndTime = next.EndTime.Add(e.options.extensionAmount)
		next.ExtensionCount++
		extended = true
	}
	return next, extended
}

func (e *Engine) backoff(ctx context.Context, attempt int) error {
	if e.options.retryBackoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(attempt) * e.options.retryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func rejected(current *models.Auction, reason RejectReason) *BidResult {
	result := &BidResult{Reason: reason}
	if current != nil {
		result.CurrentBid = current.CurrentBid
		result.MinimumNextBid = MinimumNextBid(current)
		result.EndTime = current.EndTime
	}
	return result
}
