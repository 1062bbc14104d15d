package auction_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/auction"
	"gavel/models"
)

func TestCanTransition(t *testing.T) {
	allowed := map[models.AuctionStatus][]models.AuctionStatus{
		models.AuctionStatusDraft:     {models.AuctionStatusScheduled, models.AuctionStatusCancelled},
		models.AuctionStatusScheduled: {models.AuctionStatusLive, models.AuctionStatusCancelled},
		models.AuctionStatusLive:      {models.AuctionStatusEndedSold, models.AuctionStatusEndedUnsold, models.AuctionStatusCancelled},
	}
	all := []models.AuctionStatus{
		models.AuctionStatusDraft,
		models.AuctionStatusScheduled,
		models.AuctionStatusLive,
		models.AuctionStatusEndedSold,
		models.AuctionStatusEndedUnsold,
		models.AuctionStatusCancelled,
	}
	for _, from := range all {
		for _, to := range all {
			want := lo.Contains(allowed[from], to)
			assert.Equal(t, want, auction.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransition(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	base := func(status models.AuctionStatus) *models.Auction {
		return &models.Auction{
			ID:        uuid.New(),
			StartTime: now.Add(-time.Hour),
			EndTime:   now.Add(time.Hour),
			Status:    status,
		}
	}

	t.Run("terminal states have no exit", func(t *testing.T) {
		for _, status := range []models.AuctionStatus{models.AuctionStatusEndedSold, models.AuctionStatusEndedUnsold, models.AuctionStatusCancelled} {
			_, err := auction.Transition(base(status), models.AuctionStatusLive, auction.TransitionParams{Now: now})
			assert.ErrorIs(t, err, auction.ErrInvalidTransition)
		}
	})

	t.Run("activate before start time", func(t *testing.T) {
		a := base(models.AuctionStatusScheduled)
		_, err := auction.Transition(a, models.AuctionStatusLive, auction.TransitionParams{Now: a.StartTime.Add(-time.Second)})
		assert.ErrorIs(t, err, auction.ErrInvalidTransition)
	})

	t.Run("sold requires winner", func(t *testing.T) {
		_, err := auction.Transition(base(models.AuctionStatusLive), models.AuctionStatusEndedSold, auction.TransitionParams{Now: now})
		assert.ErrorIs(t, err, auction.ErrInvalidTransition)
	})

	t.Run("sold sets result once", func(t *testing.T) {
		a := base(models.AuctionStatusLive)
		winner := uuid.New()
		next, err := auction.Transition(a, models.AuctionStatusEndedSold, auction.TransitionParams{
			Now:      now,
			WinnerID: &winner,
			FinalBid: lo.ToPtr(int64(5000)),
		})
		require.NoError(t, err)
		assert.Equal(t, models.AuctionStatusEndedSold, next.Status)
		assert.Equal(t, winner, *next.WinnerID)
		assert.Equal(t, int64(5000), *next.FinalBid)
		assert.Equal(t, now, *next.ClosedAt)
		// 不會修改傳入的拍賣
		assert.Equal(t, models.AuctionStatusLive, a.Status)
		assert.Nil(t, a.WinnerID)
	})

	t.Run("unsold rejects winner", func(t *testing.T) {
		_, err := auction.Transition(base(models.AuctionStatusLive), models.AuctionStatusEndedUnsold, auction.TransitionParams{
			Now:      now,
			WinnerID: lo.ToPtr(uuid.New()),
		})
		assert.ErrorIs(t, err, auction.ErrInvalidTransition)
	})

	t.Run("cancel live auction with bids needs override", func(t *testing.T) {
		a := base(models.AuctionStatusLive)
		a.BidCount = 1
		_, err := auction.Transition(a, models.AuctionStatusCancelled, auction.TransitionParams{Now: now})
		assert.ErrorIs(t, err, auction.ErrInvalidTransition)

		next, err := auction.Transition(a, models.AuctionStatusCancelled, auction.TransitionParams{Now: now, Override: true, Reason: "fraud"})
		require.NoError(t, err)
		assert.Equal(t, models.AuctionStatusCancelled, next.Status)
		assert.Equal(t, "fraud", next.CancelReason)
	})

	t.Run("cancel live auction without bids", func(t *testing.T) {
		next, err := auction.Transition(base(models.AuctionStatusLive), models.AuctionStatusCancelled, auction.TransitionParams{Now: now})
		require.NoError(t, err)
		assert.Equal(t, models.AuctionStatusCancelled, next.Status)
	})
}

func TestResolveWinner(t *testing.T) {
	bidder := uuid.New()
	top := &models.Bid{ID: uuid.New(), BidderID: bidder, Amount: 5000}
	sold := func(reserve *int64) *models.Auction {
		return &models.Auction{
			ID:              uuid.New(),
			ReservePrice:    reserve,
			CurrentBid:      5000,
			CurrentBidderID: &bidder,
			BidCount:        3,
		}
	}

	t.Run("no bids", func(t *testing.T) {
		resolution, err := auction.ResolveWinner(&models.Auction{}, nil)
		require.NoError(t, err)
		assert.False(t, resolution.HasWinner)
	})

	t.Run("no reserve", func(t *testing.T) {
		resolution, err := auction.ResolveWinner(sold(nil), top)
		require.NoError(t, err)
		assert.True(t, resolution.HasWinner)
		assert.Equal(t, bidder, resolution.WinnerID)
		assert.Equal(t, int64(5000), resolution.FinalBid)
		assert.Same(t, top, resolution.WinningBid)
	})

	t.Run("reserve met exactly", func(t *testing.T) {
		resolution, err := auction.ResolveWinner(sold(lo.ToPtr(int64(5000))), top)
		require.NoError(t, err)
		assert.True(t, resolution.HasWinner)
	})

	t.Run("reserve not met", func(t *testing.T) {
		resolution, err := auction.ResolveWinner(sold(lo.ToPtr(int64(5001))), top)
		require.NoError(t, err)
		assert.False(t, resolution.HasWinner)
	})

	t.Run("summary does not match ledger", func(t *testing.T) {
		_, err := auction.ResolveWinner(sold(nil), &models.Bid{ID: uuid.New(), BidderID: uuid.New(), Amount: 5000})
		assert.Error(t, err)

		_, err = auction.ResolveWinner(sold(nil), nil)
		assert.Error(t, err)
	})
}
