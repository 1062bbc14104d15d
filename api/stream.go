package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 30 * time.Second

// Track auction events
// (GET /auctions/:auctionID/events)
func (impl *ServerImpl) GetAuctionEvents(c *gin.Context) {
	const op = "GetAuctionEvents"
	id, ok := auctionID(c)
	if !ok {
		return
	}
	// 檢查拍賣是否存在
	a, err := impl.engine.GetAuction(c, id)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	// 檢查拍賣是否已經結束
	if a.Status.IsTerminal() {
		c.JSON(http.StatusGone, errorResponse{Message: "auction has ended"})
		return
	}
	ch, err := impl.sseManager.Subscribe(id.String())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Message: "event stream is closed"})
		return
	}
	defer impl.sseManager.Unsubscribe(id.String(), ch)

	// SSE請求合法，開始初始化串流
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	c.SSEvent("snapshot", newAuctionResponse(a))
	w.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(string(event.Kind), event)
			w.Flush()
			if event.Kind.IsFinal() {
				return
			}
		// 一段時間沒有事件就發送註解行，避免瀏覽器和代理伺服器斷開連線
		case <-keepAlive.C:
			_, _ = w.WriteString(": keep-alive\n\n")
			w.Flush()
		}
	}
}
