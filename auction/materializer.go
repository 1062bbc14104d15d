package auction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gavel/models"
)

// Materializer 將得標結果轉成訂單，同一場拍賣只會有一筆訂單
type Materializer struct {
	store    IStore
	currency string
	exponent int32
}

func NewMaterializer(store IStore, currency string, exponent int32) *Materializer {
	return &Materializer{store: store, currency: currency, exponent: exponent}
}

// Materialize 先以拍賣 ID 查詢既有訂單，存在時原樣回傳，不存在才建立
func (m *Materializer) Materialize(ctx context.Context, a *models.Auction, winningBid *models.Bid) (*models.Order, error) {
	const op = "Materialize"
	if a.Status != models.AuctionStatusEndedSold || a.WinnerID == nil || a.FinalBid == nil {
		return nil, fmt.Errorf("[%s] auction %s is not sold, status=%s", op, a.ID, a.Status)
	}
	existing, err := m.store.FindOrderByAuction(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to find order, err=%w", op, err)
	}
	if existing != nil {
		return existing, nil
	}
	if winningBid == nil || winningBid.BidderID != *a.WinnerID || winningBid.Amount != *a.FinalBid {
		return nil, fmt.Errorf("[%s] winning bid does not match auction %s result", op, a.ID)
	}
	order := &models.Order{
		ID:           uuid.Must(uuid.NewV7()),
		AuctionID:    a.ID,
		ListingID:    a.ListingID,
		BuyerID:      *a.WinnerID,
		SellerID:     a.SellerID,
		WinningBidID: winningBid.ID,
		Amount:       *a.FinalBid,
		Total:        decimal.New(*a.FinalBid, -m.exponent),
		Currency:     m.currency,
		Status:       models.OrderStatusPending,
	}
	created, err := m.store.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create order, err=%w", op, err)
	}
	return created, nil
}
