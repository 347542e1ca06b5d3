// internal/handlers/countdown/countdown_handler.go
package countdown

import (
	"net/http"

	xerrors "namy-service/internal/pkg/errors"
	"namy-service/internal/pkg/response"
	"namy-service/internal/repository/postgres"
	"namy-service/internal/service/lifecycle"
	ws "namy-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Countdown frames carry no sensitive state; any coupon view may attach.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type CountdownHandler struct {
	coupons *postgres.CouponRepository
	hub     *ws.Hub
	tracker *lifecycle.Tracker
	logger  *zap.Logger
}

func NewCountdownHandler(coupons *postgres.CouponRepository, hub *ws.Hub, tracker *lifecycle.Tracker, logger *zap.Logger) *CountdownHandler {
	return &CountdownHandler{
		coupons: coupons,
		hub:     hub,
		tracker: tracker,
		logger:  logger,
	}
}

// Stream upgrades to a websocket and pushes one TimeRemaining frame per
// second until the coupon expires or the view disconnects.
func (h *CountdownHandler) Stream(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.Error(c, http.StatusBadRequest, "coupon code is required", nil)
		return
	}

	details, err := h.coupons.FindRedeemDetails(c.Request.Context(), code)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrCouponNotFound) {
			response.NotFound(c, "coupon not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to look up coupon", nil)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, code, func() {
		h.tracker.Unsubscribe(code)
	}, h.logger)

	h.hub.Register <- client
	h.tracker.Subscribe(code, details.ExpiresAt)
	client.Start()
}
