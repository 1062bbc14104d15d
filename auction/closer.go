package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"gavel/models"
)

type OutcomeStatus string

const (
	OutcomeSold       OutcomeStatus = "sold"
	OutcomeUnsold     OutcomeStatus = "unsold"
	OutcomeReconciled OutcomeStatus = "reconciled"
	OutcomeSkipped    OutcomeStatus = "skipped"
	OutcomeErrored    OutcomeStatus = "errored"
)

// Outcome 單一拍賣的結標結果
type Outcome struct {
	AuctionID uuid.UUID
	Status    OutcomeStatus
	OrderID   *uuid.UUID
	Err       error
}

// Closed 是否在這次處理中完成結標
func (o Outcome) Closed() bool {
	switch o.Status {
	case OutcomeSold, OutcomeUnsold, OutcomeReconciled:
		return true
	}
	return false
}

func closeLockKey(id uuid.UUID) string {
	return fmt.Sprintf("auction:%s:close", id)
}

// CloseAuction 結束一場已到期的拍賣，可以重複呼叫
//
// 流程:
//   - 1. 取得該拍賣的結標鎖，被其他人持有時跳過
//   - 2. 已經有 WonAuction 代表結標完成，跳過
//   - 3. ended_sold 但沒有 WonAuction 代表上次在建立訂單時失敗，只重做訂單與得標紀錄
//   - 4. live 且已到結束時間時判定得標者並轉移狀態，其他狀態不處理
//   - 5. 有得標者時建立訂單、寫入 WonAuction 並通知買賣雙方，流標時送出流標事件
func (e *Engine) CloseAuction(ctx context.Context, id uuid.UUID) Outcome {
	logger := e.logger.With(slog.String("auctionID", id.String()))
	errored := func(err error) Outcome {
		logger.Error("Fail to close auction", slog.Any("error", err))
		return Outcome{AuctionID: id, Status: OutcomeErrored, Err: err}
	}
	skipped := Outcome{AuctionID: id, Status: OutcomeSkipped}

	unlock, err := e.options.locker.TryLock(ctx, closeLockKey(id))
	if errors.Is(err, ErrLockBusy) {
		logger.Debug("Auction is being closed by another worker")
		return skipped
	}
	if err != nil {
		return errored(fmt.Errorf("fail to acquire close lock, err=%w", err))
	}
	defer unlock()

	won, err := e.store.GetWonAuction(ctx, id)
	if err != nil {
		return errored(fmt.Errorf("fail to get won auction, err=%w", err))
	}
	if won != nil {
		return skipped
	}

	for attempt := 0; ; attempt++ {
		current, err := e.store.GetAuction(ctx, id)
		if err != nil {
			return errored(fmt.Errorf("fail to get auction, err=%w", err))
		}
		switch current.Status {
		case models.AuctionStatusEndedSold:
			return e.reconcile(ctx, current)
		case models.AuctionStatusLive:
		default:
			return skipped
		}
		now := e.now()
		if now.Before(current.EndTime) {
			return skipped
		}

		top, err := e.store.TopBid(ctx, id)
		if err != nil {
			return errored(fmt.Errorf("fail to get top bid, err=%w", err))
		}
		resolution, err := ResolveWinner(current, top)
		if err != nil {
			return errored(err)
		}
		var next models.Auction
		if resolution.HasWinner {
			next, err = Transition(current, models.AuctionStatusEndedSold, TransitionParams{
				Now:      now,
				WinnerID: &resolution.WinnerID,
				FinalBid: &resolution.FinalBid,
			})
		} else {
			next, err = Transition(current, models.AuctionStatusEndedUnsold, TransitionParams{Now: now})
		}
		if err != nil {
			return errored(err)
		}
		err = e.store.UpdateAuction(ctx, current.Version, &next)
		if errors.Is(err, ErrVersionConflict) && attempt < e.options.maxBidRetries {
			// 有出價搶在結標前寫入，重新讀取後再判斷一次
			continue
		}
		if err != nil {
			return errored(fmt.Errorf("fail to transition auction, err=%w", err))
		}

		if !resolution.HasWinner {
			logger.Info("Auction ended without a winner", slog.Int64("bidCount", next.BidCount))
			e.emit(ctx, models.NewAuctionUnsoldEvent(id, now))
			return Outcome{AuctionID: id, Status: OutcomeUnsold}
		}

		order, err := e.finishSale(ctx, &next, resolution.WinningBid)
		if err != nil {
			// 拍賣已經是 ended_sold 但沒有 WonAuction，下一次掃描會補做
			return errored(fmt.Errorf("auction sold but not finalized, err=%w", err))
		}
		logger.Info("Auction sold",
			slog.String("winnerID", resolution.WinnerID.String()),
			slog.Int64("finalBid", resolution.FinalBid),
			slog.String("orderID", order.ID.String()))
		return Outcome{AuctionID: id, Status: OutcomeSold, OrderID: &order.ID}
	}
}

// reconcile 補做已轉為 ended_sold 的拍賣剩下的步驟，不會重新判定得標者
func (e *Engine) reconcile(ctx context.Context, a *models.Auction) Outcome {
	logger := e.logger.With(slog.String("auctionID", a.ID.String()))
	top, err := e.store.TopBid(ctx, a.ID)
	if err != nil {
		logger.Error("Fail to reconcile auction", slog.Any("error", err))
		return Outcome{AuctionID: a.ID, Status: OutcomeErrored, Err: err}
	}
	order, err := e.finishSale(ctx, a, top)
	if err != nil {
		logger.Error("Fail to reconcile auction", slog.Any("error", err))
		return Outcome{AuctionID: a.ID, Status: OutcomeErrored, Err: err}
	}
	logger.Info("Auction reconciled", slog.String("orderID", order.ID.String()))
	return Outcome{AuctionID: a.ID, Status: OutcomeReconciled, OrderID: &order.ID}
}

// finishSale 建立訂單與 WonAuction 後通知買賣雙方，兩個步驟都可以重複執行
func (e *Engine) finishSale(ctx context.Context, a *models.Auction, winningBid *models.Bid) (*models.Order, error) {
	const op = "finishSale"
	order, err := e.materialize.Materialize(ctx, a, winningBid)
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", op, err)
	}
	_, err = e.store.CreateWonAuction(ctx, &models.WonAuction{
		AuctionID: a.ID,
		WinnerID:  *a.WinnerID,
		FinalBid:  *a.FinalBid,
		OrderID:   order.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create won auction, err=%w", op, err)
	}
	e.emit(ctx, models.NewAuctionWonEvent(a.ID, *a.WinnerID, a.SellerID, *a.FinalBid, e.now()))
	return order, nil
}
