package api

import (
	"bufio"
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/adapters/memory"
	"gavel/auction"
	"gavel/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	impl   *ServerImpl
	router *gin.Engine
	clock  *testClock
}

func newTestServer(t *testing.T, config ServerConfig, opts ...ServerOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	// 定時掃描會和測試中的 /admin/sweep 搶同一場拍賣
	opts = append([]ServerOption{
		WithServerStore(memory.NewStore()),
		WithServerEngineOptions(auction.WithEngineClock(clock.Now)),
		WithServerBackgroundSweep(false),
	}, opts...)
	impl, err := NewServer(config, opts...)
	require.NoError(t, err)
	require.NoError(t, impl.Start())
	t.Cleanup(impl.Close)

	router := gin.New()
	router.ContextWithFallback = true
	impl.RegisterHandlers(router)
	return &testServer{impl: impl, router: router, clock: clock}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (s *testServer) auctionBody(sellerID uuid.UUID) map[string]any {
	now := s.clock.Now()
	return map[string]any{
		"listingId":       uuid.New(),
		"sellerId":        sellerID,
		"startingPrice":   1000,
		"reservePrice":    1500,
		"minBidIncrement": 100,
		"startTime":       now.Add(-time.Minute),
		"endTime":         now.Add(time.Hour),
		"schedule":        true,
	}
}

func (s *testServer) createAuction(t *testing.T, token string) auctionResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auctions", s.auctionBody(uuid.New()), token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[auctionResponse](t, rec)
}

func TestServer_AuctionLifecycle(t *testing.T) {
	s := newTestServer(t, ServerConfig{})
	created := s.createAuction(t, "")
	assert.Equal(t, models.AuctionStatusScheduled, created.Status)
	assert.True(t, created.HasReserve)
	path := "/auctions/" + created.ID.String()

	alice, bob := uuid.New(), uuid.New()

	// 第一筆出價會啟用拍賣
	rec := s.do(t, http.MethodPost, path+"/bids", map[string]any{"bidderId": alice, "amount": 1000}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[placeBidResponse](t, rec)
	assert.True(t, placed.Accepted)
	assert.NotNil(t, placed.BidID)
	assert.Equal(t, int64(1100), placed.MinimumNextBid)

	rec = s.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "reservePrice")
	snapshot := decode[auctionResponse](t, rec)
	assert.Equal(t, models.AuctionStatusLive, snapshot.Status)
	assert.Equal(t, int64(1000), snapshot.CurrentBid)
	assert.Equal(t, alice, *snapshot.CurrentBidderID)
	assert.False(t, snapshot.ReserveMet)

	rec = s.do(t, http.MethodPost, path+"/bids", map[string]any{"bidderId": bob, "amount": 1050}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rejected := decode[placeBidResponse](t, rec)
	assert.False(t, rejected.Accepted)
	assert.Equal(t, string(auction.ReasonBidTooLow), rejected.Reason)

	rec = s.do(t, http.MethodPost, path+"/bids", map[string]any{"bidderId": bob, "amount": 1600}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, path+"/bids", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	bids := decode[struct {
		Count int           `json:"count"`
		Bids  []bidResponse `json:"bids"`
	}](t, rec)
	require.Equal(t, 2, bids.Count)
	assert.Equal(t, int64(1600), bids.Bids[0].Amount)
	assert.Equal(t, bob, bids.Bids[0].BidderID)

	// 還沒結標時沒有訂單
	rec = s.do(t, http.MethodGet, path+"/order", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.clock.Advance(2 * time.Hour)
	rec = s.do(t, http.MethodPost, "/admin/sweep", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[sweepResponse](t, rec)
	assert.Equal(t, 1, summary.Closed)
	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, auction.OutcomeSold, summary.Outcomes[0].Status)
	require.NotNil(t, summary.Outcomes[0].OrderID)

	rec = s.do(t, http.MethodGet, path+"/order", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[orderResponse](t, rec)
	assert.Equal(t, *summary.Outcomes[0].OrderID, order.ID)
	assert.Equal(t, bob, order.BuyerID)
	assert.Equal(t, int64(1600), order.Amount)
	assert.Equal(t, "1600", order.Total)
	assert.Equal(t, "TWD", order.Currency)

	rec = s.do(t, http.MethodGet, path, nil, "")
	final := decode[auctionResponse](t, rec)
	assert.Equal(t, models.AuctionStatusEndedSold, final.Status)
	assert.Equal(t, bob, *final.WinnerID)
	assert.Equal(t, int64(1600), *final.FinalBid)

	rec = s.do(t, http.MethodGet, path+"/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[struct {
		Count  int            `json:"count"`
		Events []models.Event `json:"events"`
	}](t, rec)
	kinds := lo.Map(history.Events, func(e models.Event, _ int) models.EventKind { return e.Kind })
	assert.ElementsMatch(t, []models.EventKind{
		models.EventKindBidPlaced,
		models.EventKindBidPlaced,
		models.EventKindOutbid,
		models.EventKindAuctionWon,
	}, kinds)
	assert.Equal(t, models.EventKindAuctionWon, kinds[len(kinds)-1])

	// 結標後不能再出價
	rec = s.do(t, http.MethodPost, path+"/bids", map[string]any{"bidderId": alice, "amount": 5000}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(auction.ReasonAuctionNotLive), decode[placeBidResponse](t, rec).Reason)
}

func TestServer_CreateAuctionValidation(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	tests := []struct {
		name   string
		modify func(body map[string]any)
	}{
		{"缺少起標價", func(body map[string]any) { delete(body, "startingPrice") }},
		{"結束時間早於開始時間", func(body map[string]any) { body["endTime"] = s.clock.Now().Add(-time.Hour) }},
		{"底價低於起標價", func(body map[string]any) { body["reservePrice"] = 10 }},
		{"加價幅度為零", func(body map[string]any) { body["minBidIncrement"] = 0 }},
		{"缺少商品", func(body map[string]any) { delete(body, "listingId") }},
		{"起標價超過上限", func(body map[string]any) {
			body["startingPrice"] = auction.MaxAmount + 1
			body["reservePrice"] = auction.MaxAmount + 1
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := s.auctionBody(uuid.New())
			tt.modify(body)
			rec := s.do(t, http.MethodPost, "/auctions", body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	t.Run("未指定加價幅度時預設為1", func(t *testing.T) {
		body := s.auctionBody(uuid.New())
		delete(body, "minBidIncrement")
		rec := s.do(t, http.MethodPost, "/auctions", body, "")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, int64(1), decode[auctionResponse](t, rec).MinBidIncrement)
		assert.NotEmpty(t, rec.Header().Get("Location"))
	})

	t.Run("出價超過上限", func(t *testing.T) {
		created := s.createAuction(t, "")
		rec := s.do(t, http.MethodPost, "/auctions/"+created.ID.String()+"/bids", map[string]any{"bidderId": uuid.New(), "amount": int64(math.MaxInt64)}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})
}

func TestServer_NotFound(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	for _, path := range []string{
		"/auctions/not-a-uuid",
		"/auctions/" + uuid.NewString(),
		"/auctions/" + uuid.NewString() + "/bids",
		"/auctions/" + uuid.NewString() + "/order",
		"/auctions/" + uuid.NewString() + "/history",
		"/auctions/" + uuid.NewString() + "/events",
	} {
		rec := s.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := s.do(t, http.MethodPost, "/admin/auctions/"+uuid.NewString()+"/close", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPost, "/auctions/"+uuid.NewString()+"/bids", map[string]any{"bidderId": uuid.New(), "amount": 100}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_AdminTransitions(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	body := s.auctionBody(uuid.New())
	body["schedule"] = false
	rec := s.do(t, http.MethodPost, "/auctions", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[auctionResponse](t, rec)
	assert.Equal(t, models.AuctionStatusDraft, created.Status)
	admin := "/admin/auctions/" + created.ID.String()

	// draft 不能直接啟用
	rec = s.do(t, http.MethodPost, admin+"/activate", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, admin+"/schedule", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, admin+"/activate", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AuctionStatusLive, decode[auctionResponse](t, rec).Status)

	// 還沒到期的拍賣不會被結標
	rec = s.do(t, http.MethodPost, admin+"/close", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auction.OutcomeSkipped, decode[outcomeResponse](t, rec).Status)

	rec = s.do(t, http.MethodPost, "/auctions/"+created.ID.String()+"/bids", map[string]any{"bidderId": uuid.New(), "amount": 1000}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	// 有出價的拍賣需要 override 才能取消
	rec = s.do(t, http.MethodPost, admin+"/cancel", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, admin+"/cancel", map[string]any{"override": true, "reason": "<script>alert(1)</script>fraud"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[auctionResponse](t, rec)
	assert.Equal(t, models.AuctionStatusCancelled, cancelled.Status)
	assert.Equal(t, "fraud", cancelled.CancelReason)

	// 終止的拍賣沒有即時事件
	rec = s.do(t, http.MethodGet, "/auctions/"+created.ID.String()+"/events", nil, "")
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestServer_Close(t *testing.T) {
	s := newTestServer(t, ServerConfig{})
	created := s.createAuction(t, "")

	s.clock.Advance(2 * time.Hour)
	rec := s.do(t, http.MethodPost, "/admin/auctions/"+created.ID.String()+"/close", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	// 還在 scheduled 的拍賣不會被直接結標
	assert.Equal(t, auction.OutcomeSkipped, decode[outcomeResponse](t, rec).Status)

	// 掃描時先啟用再結標，沒有人出價所以流標
	rec = s.do(t, http.MethodPost, "/admin/sweep", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[sweepResponse](t, rec)
	assert.Equal(t, 1, summary.Activated)
	assert.Equal(t, 1, summary.Closed)
	assert.Equal(t, auction.OutcomeUnsold, summary.Outcomes[0].Status)

	rec = s.do(t, http.MethodGet, "/auctions/"+created.ID.String(), nil, "")
	assert.Equal(t, models.AuctionStatusEndedUnsold, decode[auctionResponse](t, rec).Status)
}

func TestServer_CloseSurvivesClientDisconnect(t *testing.T) {
	s := newTestServer(t, ServerConfig{})
	created := s.createAuction(t, "")
	rec := s.do(t, http.MethodPost, "/auctions/"+created.ID.String()+"/bids", map[string]any{"bidderId": uuid.New(), "amount": 2000}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	s.clock.Advance(2 * time.Hour)

	// 請求的 context 在結標開始前就已經取消
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/admin/auctions/"+created.ID.String()+"/close", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	outcome := decode[outcomeResponse](t, rec)
	assert.Equal(t, auction.OutcomeSold, outcome.Status)
	require.NotNil(t, outcome.OrderID)

	rec = s.do(t, http.MethodGet, "/auctions/"+created.ID.String()+"/order", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_BackgroundSweep(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &testClock{now: start}
	store := memory.NewStore()
	// 已經過了結束時間的拍賣
	due := &models.Auction{
		ID:              uuid.New(),
		ListingID:       uuid.New(),
		SellerID:        uuid.New(),
		StartingPrice:   1000,
		MinBidIncrement: 100,
		StartTime:       start.Add(-2 * time.Hour),
		EndTime:         start.Add(-time.Hour),
		Status:          models.AuctionStatusLive,
	}
	require.NoError(t, store.CreateAuction(context.Background(), due))

	status := func(impl *ServerImpl) models.AuctionStatus {
		a, err := impl.engine.GetAuction(context.Background(), due.ID)
		require.NoError(t, err)
		return a.Status
	}

	disabled, err := NewServer(ServerConfig{},
		WithServerStore(store),
		WithServerEngineOptions(auction.WithEngineClock(clock.Now)),
		WithServerBackgroundSweep(false),
	)
	require.NoError(t, err)
	require.NoError(t, disabled.Start())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, models.AuctionStatusLive, status(disabled))
	disabled.Close()

	// 預設會在啟動時立即掃描一次
	enabled, err := NewServer(ServerConfig{},
		WithServerStore(store),
		WithServerEngineOptions(auction.WithEngineClock(clock.Now)),
	)
	require.NoError(t, err)
	require.NoError(t, enabled.Start())
	t.Cleanup(enabled.Close)
	assert.Eventually(t, func() bool {
		return status(enabled) == models.AuctionStatusEndedUnsold
	}, 5*time.Second, 20*time.Millisecond)
}

func TestServer_Auth(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	s := newTestServer(t, ServerConfig{Auth: AuthConfig{PublicKey: publicKey}})

	token := func(subject uuid.UUID, role string) string {
		signed, err := NewAccessToken(subject, role, time.Hour, privateKey)
		require.NoError(t, err)
		return signed
	}
	seller, bidder, operator := uuid.New(), uuid.New(), uuid.New()
	sellerToken := token(seller, RoleBidder)
	bidderToken := token(bidder, RoleBidder)
	adminToken := token(operator, RoleAdmin)

	// 沒有 token
	rec := s.do(t, http.MethodPost, "/auctions", s.auctionBody(uuid.New()), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 其他金鑰簽發的 token
	_, otherKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	forged, err := NewAccessToken(seller, RoleAdmin, time.Hour, otherKey)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/auctions", s.auctionBody(uuid.New()), forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 過期的 token
	expired, err := NewAccessToken(seller, RoleBidder, -time.Minute, privateKey)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/auctions", s.auctionBody(uuid.New()), expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 賣家以 token 的 subject 為準
	created := s.createAuction(t, sellerToken)
	assert.Equal(t, seller, created.SellerID)
	path := "/auctions/" + created.ID.String()

	// 讀取不需要 token
	rec = s.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, path+"/bids", map[string]any{"amount": 1000}, sellerToken)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(auction.ReasonSellerBidding), decode[placeBidResponse](t, rec).Reason)

	// 請求內容中的 bidderId 會被忽略
	rec = s.do(t, http.MethodPost, path+"/bids", map[string]any{"bidderId": uuid.New(), "amount": 1000}, bidderToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, bidder, *decode[auctionResponse](t, rec).CurrentBidderID)

	rec = s.do(t, http.MethodPost, "/admin/sweep", nil, bidderToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, "/admin/sweep", nil, adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseAndValidateJWT(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	subject := uuid.New()

	signed, err := NewAccessToken(subject, RoleAdmin, time.Hour, privateKey)
	require.NoError(t, err)
	claims, err := ParseAndValidateJWT(signed, publicKey)
	require.NoError(t, err)
	assert.Equal(t, subject.String(), claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = ParseAndValidateJWT("not-a-token", publicKey)
	assert.Error(t, err)
}

func TestServer_EventStream(t *testing.T) {
	s := newTestServer(t, ServerConfig{})
	created := s.createAuction(t, "")
	_, err := s.impl.engine.Activate(context.Background(), created.ID)
	require.NoError(t, err)

	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/auctions/" + created.ID.String() + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// 收到快照之後才代表已經訂閱
	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event:snapshot\n", line)

	bidder := uuid.New()
	result, err := s.impl.engine.PlaceBid(context.Background(), auction.PlaceBidRequest{AuctionID: created.ID, BidderID: bidder, Amount: 1000})
	require.NoError(t, err)
	require.True(t, result.Accepted)
	_, err = s.impl.engine.Cancel(context.Background(), created.ID, true, "withdrawn")
	require.NoError(t, err)

	// 收到最終事件後伺服器會結束串流
	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	body := string(rest)
	assert.Contains(t, body, "event:bid_placed")
	assert.Contains(t, body, "event:auction_cancelled")
	assert.Less(t, strings.Index(body, "event:bid_placed"), strings.Index(body, "event:auction_cancelled"))
	assert.Contains(t, body, bidder.String())
}

func TestServer_RedisMode(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := newTestServer(t, ServerConfig{
		ID: "test-instance",
		Redis: RedisConfig{
			KeyPrefix:     "gavel:",
			StreamKeys:    RedisStreamKeys{Events: "gavel-auction-events"},
			ConsumerGroup: "gavel-archiver",
		},
	}, WithServerRedisClient(client))
	require.NotNil(t, s.impl.producer)
	require.NotNil(t, s.impl.groupConsumer)

	created := s.createAuction(t, "")
	path := "/auctions/" + created.ID.String()
	rec := s.do(t, http.MethodPost, path+"/bids", map[string]any{"bidderId": uuid.New(), "amount": 2000}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	s.clock.Advance(2 * time.Hour)
	rec = s.do(t, http.MethodPost, "/admin/auctions/"+created.ID.String()+"/close", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, auction.OutcomeSold, decode[outcomeResponse](t, rec).Status)

	// 事件經由 redis stream 與 group consumer 歸檔
	assert.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, path+"/history", nil, "")
		if rec.Code != http.StatusOK {
			return false
		}
		var history struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
			return false
		}
		return history.Count == 2
	}, 5*time.Second, 50*time.Millisecond)

	// 結標鎖已經釋放
	assert.False(t, mr.Exists("gavel:auction:"+created.ID.String()+":close"))
}
