package auction_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gavel/adapters/memory"
	"gavel/auction"
	"gavel/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// recorder 記錄引擎送出的所有事件
type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) Notify(_ context.Context, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) Of(kind models.EventKind) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Event
	for _, e := range r.events {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	return result
}

type testEnv struct {
	engine   *auction.Engine
	store    *memory.Store
	clock    *fakeClock
	recorder *recorder
}

func setupEngine(t *testing.T, store auction.IStore, opts ...auction.EngineOption) *testEnv {
	t.Helper()
	env := &testEnv{clock: newFakeClock(), recorder: &recorder{}}
	if store == nil {
		env.store = memory.NewStore()
		store = env.store
	}
	opts = append([]auction.EngineOption{
		auction.WithEngineClock(env.clock.Now),
		auction.WithEngineBidRetries(3, 0),
	}, opts...)
	engine, err := auction.NewEngine(store, env.recorder, opts...)
	require.NoError(t, err)
	env.engine = engine
	return env
}

type auctionTerms struct {
	startingPrice int64
	reservePrice  *int64
	increment     int64
	startIn       time.Duration
	duration      time.Duration
}

func defaultTerms() auctionTerms {
	return auctionTerms{
		startingPrice: 1000,
		increment:     100,
		startIn:       -time.Minute,
		duration:      time.Hour,
	}
}

// createAuction 建立並排程一場拍賣，開始時間已到時一併啟用
func (env *testEnv) createAuction(t *testing.T, terms auctionTerms) *models.Auction {
	t.Helper()
	ctx := context.Background()
	start := env.clock.Now().Add(terms.startIn)
	a, err := env.engine.CreateAuction(ctx, auction.CreateAuctionParams{
		ListingID:       uuid.New(),
		SellerID:        uuid.New(),
		StartingPrice:   terms.startingPrice,
		ReservePrice:    terms.reservePrice,
		MinBidIncrement: terms.increment,
		StartTime:       start,
		EndTime:         start.Add(terms.duration),
	})
	require.NoError(t, err)
	a, err = env.engine.Schedule(ctx, a.ID)
	require.NoError(t, err)
	if !env.clock.Now().Before(a.StartTime) {
		a, err = env.engine.Activate(ctx, a.ID)
		require.NoError(t, err)
	}
	return a
}

func (env *testEnv) bid(t *testing.T, auctionID, bidderID uuid.UUID, amount int64) *auction.BidResult {
	t.Helper()
	result, err := env.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
	})
	require.NoError(t, err)
	return result
}

func (env *testEnv) get(t *testing.T, id uuid.UUID) *models.Auction {
	t.Helper()
	a, err := env.engine.GetAuction(context.Background(), id)
	require.NoError(t, err)
	return a
}
