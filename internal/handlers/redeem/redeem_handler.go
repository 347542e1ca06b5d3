// internal/handlers/redeem/redeem_handler.go
package redeem

import (
	"net/http"

	redemptionDomain "namy-service/internal/domain/redemption"
	"namy-service/internal/middleware"
	xerrors "namy-service/internal/pkg/errors"
	"namy-service/internal/pkg/response"
	service "namy-service/internal/service/redemption"

	"github.com/gin-gonic/gin"
)

type RedeemHandler struct {
	redemptionService *service.Service
}

func NewRedeemHandler(redemptionService *service.Service) *RedeemHandler {
	return &RedeemHandler{redemptionService: redemptionService}
}

// Redeem executes the staff-PIN-gated redemption for a coupon code.
func (h *RedeemHandler) Redeem(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.Error(c, http.StatusBadRequest, "coupon code is required", nil)
		return
	}

	var req redemptionDomain.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	// The body's deviceId wins over the header so staff devices can redeem
	// on behalf of the customer's device.
	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = middleware.MustGetDeviceID(c).String()
	}

	result, err := h.redemptionService.Redeem(c.Request.Context(), code, req.StoreID, req.StaffPIN, deviceID)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrPINFormat):
			response.ValidationError(c, "invalid staff pin", err)
		case xerrors.Is(err, xerrors.ErrRedeemInFlight):
			response.Error(c, http.StatusConflict, "redemption already in progress", err)
		case xerrors.Is(err, xerrors.ErrCouponNotFound):
			response.NotFound(c, "coupon not found")
		default:
			response.Error(c, http.StatusInternalServerError, "failed to redeem coupon", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, "redemption processed", result)
}
