// internal/handlers/coupon/coupon_handler.go
package coupon

import (
	"errors"
	"net/http"

	couponDomain "namy-service/internal/domain/coupon"
	"namy-service/internal/middleware"
	xerrors "namy-service/internal/pkg/errors"
	"namy-service/internal/pkg/response"
	"namy-service/internal/repository/postgres"
	scanService "namy-service/internal/service/scan"

	"github.com/gin-gonic/gin"
)

type CouponHandler struct {
	coupons     *postgres.CouponRepository
	scanService *scanService.Service
}

func NewCouponHandler(coupons *postgres.CouponRepository, scanSvc *scanService.Service) *CouponHandler {
	return &CouponHandler{
		coupons:     coupons,
		scanService: scanSvc,
	}
}

// GetRedeemDetails returns the authoritative redeem verdict for a code.
func (h *CouponHandler) GetRedeemDetails(c *gin.Context) {
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

	response.Success(c, http.StatusOK, "coupon retrieved", details)
}

// Decode decrypts a payload string and returns the lifecycle verdict. Used by
// the server-rendered path where the payload arrives via URL.
func (h *CouponHandler) Decode(c *gin.Context) {
	deviceID := middleware.MustGetDeviceID(c)

	var req couponDomain.DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	verdict, err := h.scanService.DecodePayload(c.Request.Context(), req.Payload, deviceID.String())
	if err != nil {
		writeDecodeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "coupon decoded", verdict)
}

// GetCached returns the coupon a previous scan parked for this device.
func (h *CouponHandler) GetCached(c *gin.Context) {
	deviceID := middleware.MustGetDeviceID(c)

	verdict, err := h.scanService.Cached(c.Request.Context(), deviceID.String())
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "no cached coupon")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to read cached coupon", nil)
		return
	}

	response.Success(c, http.StatusOK, "coupon retrieved", verdict)
}

// writeDecodeError normalizes payload failures: cryptographic and schema
// details never reach the end user.
func writeDecodeError(c *gin.Context, err error) {
	var schemaErr *xerrors.SchemaError
	switch {
	case xerrors.Is(err, xerrors.ErrPayloadFormat),
		xerrors.Is(err, xerrors.ErrPayloadAuth),
		xerrors.Is(err, xerrors.ErrUnsupportedPayload),
		errors.As(err, &schemaErr):
		response.Error(c, http.StatusUnprocessableEntity, "invalid coupon", nil)
	default:
		response.Error(c, http.StatusInternalServerError, "failed to decode coupon", nil)
	}
}
