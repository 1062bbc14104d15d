package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gavel/auction"
)

// auctionID 解析路徑中的拍賣 ID，格式錯誤時直接回應 404
func auctionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Message: "auction not found"})
		return uuid.Nil, false
	}
	return id, true
}

// abortWithError 將引擎的錯誤對應到 HTTP 狀態碼，無法對應的錯誤視為伺服器錯誤
func (impl *ServerImpl) abortWithError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, auction.ErrAuctionNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Message: "auction not found"})
	case errors.Is(err, auction.ErrInvalidAuction):
		c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	case errors.Is(err, auction.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorResponse{Message: err.Error()})
	case errors.Is(err, auction.ErrVersionConflict):
		c.JSON(http.StatusConflict, errorResponse{Message: "auction was modified concurrently, try again"})
	default:
		impl.logger.Error("Request failed", slog.String("op", op), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

// Create a draft auction
// (POST /auctions)
func (impl *ServerImpl) PostAuction(c *gin.Context) {
	const op = "PostAuction"
	var body createAuctionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}
	// 處理預設值
	increment := int64(1)
	if body.MinBidIncrement != nil {
		increment = *body.MinBidIncrement
	}
	created, err := impl.engine.CreateAuction(c, auction.CreateAuctionParams{
		ListingID:       body.ListingID,
		SellerID:        actorID(c, body.SellerID),
		StartingPrice:   body.StartingPrice,
		ReservePrice:    body.ReservePrice,
		MinBidIncrement: increment,
		StartTime:       body.StartTime,
		EndTime:         body.EndTime,
	})
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	if body.Schedule {
		if created, err = impl.engine.Schedule(c, created.ID); err != nil {
			impl.abortWithError(c, op, err)
			return
		}
	}
	c.Header("Location", fmt.Sprintf("/auctions/%s", created.ID))
	c.JSON(http.StatusCreated, newAuctionResponse(created))
}

// Get auction snapshot
// (GET /auctions/:auctionID)
func (impl *ServerImpl) GetAuction(c *gin.Context) {
	const op = "GetAuction"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	a, err := impl.engine.GetAuction(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newAuctionResponse(a))
}

// List bids of an auction
// (GET /auctions/:auctionID/bids)
func (impl *ServerImpl) GetAuctionBids(c *gin.Context) {
	const op = "GetAuctionBids"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	bids, err := impl.engine.ListBids(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(bids), "bids": newBidResponses(bids)})
}

// Place a bid on an auction
// (POST /auctions/:auctionID/bids)
func (impl *ServerImpl) PostAuctionBid(c *gin.Context) {
	const op = "PostAuctionBid"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	var body placeBidRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}
	bidderID := actorID(c, body.BidderID)
	if bidderID == uuid.Nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "bidder is required"})
		return
	}
	result, err := impl.engine.PlaceBid(c, auction.PlaceBidRequest{
		AuctionID: id,
		BidderID:  bidderID,
		Amount:    body.Amount,
	})
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	switch {
	case result.Accepted:
		c.JSON(http.StatusCreated, newPlaceBidResponse(result))
	case result.Reason == auction.ReasonSuperseded:
		c.JSON(http.StatusConflict, newPlaceBidResponse(result))
	default:
		c.JSON(http.StatusUnprocessableEntity, newPlaceBidResponse(result))
	}
}

// Get the order materialized from a sold auction
// (GET /auctions/:auctionID/order)
func (impl *ServerImpl) GetAuctionOrder(c *gin.Context) {
	const op = "GetAuctionOrder"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	order, err := impl.engine.FindOrder(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, errorResponse{Message: "order not found"})
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

// List archived events of an auction
// (GET /auctions/:auctionID/history)
func (impl *ServerImpl) GetAuctionHistory(c *gin.Context) {
	const op = "GetAuctionHistory"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	if _, err := impl.engine.GetAuction(c, id); err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	events, err := impl.store.ListEvents(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}

// Schedule a draft auction
// (POST /admin/auctions/:auctionID/schedule)
func (impl *ServerImpl) PostAdminSchedule(c *gin.Context) {
	const op = "PostAdminSchedule"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	a, err := impl.engine.Schedule(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newAuctionResponse(a))
}

// Activate a scheduled auction
// (POST /admin/auctions/:auctionID/activate)
func (impl *ServerImpl) PostAdminActivate(c *gin.Context) {
	const op = "PostAdminActivate"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	a, err := impl.engine.Activate(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newAuctionResponse(a))
}

// Cancel an auction
// (POST /admin/auctions/:auctionID/cancel)
func (impl *ServerImpl) PostAdminCancel(c *gin.Context) {
	const op = "PostAdminCancel"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	var body cancelAuctionRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}
	// 處理取消原因
	reason := impl.htmlChecker.Sanitize(body.Reason)
	a, err := impl.engine.Cancel(c, id, body.Override, reason)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newAuctionResponse(a))
}

// Force close one auction
// (POST /admin/auctions/:auctionID/close)
func (impl *ServerImpl) PostAdminClose(c *gin.Context) {
	id, ok := auctionID(c)
	if !ok {
		return
	}
	// 客戶端斷線時結標仍要執行完畢
	outcome := impl.engine.CloseAuction(context.WithoutCancel(c.Request.Context()), id)
	status := http.StatusOK
	if outcome.Status == auction.OutcomeErrored {
		if errors.Is(outcome.Err, auction.ErrAuctionNotFound) {
			status = http.StatusNotFound
		} else {
			status = http.StatusInternalServerError
		}
	}
	c.JSON(status, newOutcomeResponse(outcome))
}

// Force a sweep
// (POST /admin/sweep)
func (impl *ServerImpl) PostAdminSweep(c *gin.Context) {
	const op = "PostAdminSweep"
	summary, err := impl.engine.Sweep(c)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newSweepResponse(summary))
}
