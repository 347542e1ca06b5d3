// internal/handlers/unlock/unlock_handler.go
package unlock

import (
	"errors"
	"net/http"
	"time"

	adDomain "namy-service/internal/domain/ad"
	"namy-service/internal/middleware"
	xerrors "namy-service/internal/pkg/errors"
	"namy-service/internal/pkg/response"
	service "namy-service/internal/service/unlock"

	"github.com/gin-gonic/gin"
)

type UnlockHandler struct {
	unlockService *service.Service
}

func NewUnlockHandler(unlockService *service.Service) *UnlockHandler {
	return &UnlockHandler{unlockService: unlockService}
}

// GetAdPair starts an unlock attempt: one session, two ads.
func (h *UnlockHandler) GetAdPair(c *gin.Context) {
	deviceID := middleware.MustGetDeviceID(c)

	pair, err := h.unlockService.StartSession(c.Request.Context(), deviceID.String())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to start unlock session", nil)
		return
	}

	response.Success(c, http.StatusOK, "ads retrieved", pair)
}

// ReportWatch records one ad-watch report and returns whether the gate is
// satisfied.
func (h *UnlockHandler) ReportWatch(c *gin.Context) {
	deviceID := middleware.MustGetDeviceID(c)

	var req adDomain.WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.unlockService.ReportWatch(c.Request.Context(), deviceID.String(), &req)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrSessionNotFound):
			response.NotFound(c, "session not found or expired")
		case xerrors.Is(err, xerrors.ErrWatchRejected):
			response.Error(c, http.StatusBadRequest, "watch report rejected", nil)
		case xerrors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "ad not found")
		default:
			response.Error(c, http.StatusInternalServerError, "failed to record watch", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, "watch recorded", result)
}

// Exchange trades a single-use unlock token plus a discount id for a new
// coupon.
func (h *UnlockHandler) Exchange(c *gin.Context) {
	deviceID := middleware.MustGetDeviceID(c)

	var req adDomain.ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	issued, err := h.unlockService.Exchange(c.Request.Context(), deviceID.String(), &req)
	if err != nil {
		var rateErr *xerrors.RateLimitError
		switch {
		case errors.As(err, &rateErr):
			response.TooManyRequests(c, "coupon generation cooldown active", gin.H{
				"retryAfterSeconds": int(rateErr.RetryAfter / time.Second),
			})
		case xerrors.Is(err, xerrors.ErrTokenInvalid), xerrors.Is(err, xerrors.ErrTokenConsumed):
			response.Error(c, http.StatusForbidden, "unlock token rejected", err)
		case xerrors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "discount not found")
		default:
			response.Error(c, http.StatusInternalServerError, "failed to exchange token", nil)
		}
		return
	}

	response.Success(c, http.StatusCreated, "coupon issued", issued)
}
