// internal/handlers/profile/profile_handler.go
package profile

import (
	"net/http"
	"strconv"

	"namy-service/internal/middleware"
	xerrors "namy-service/internal/pkg/errors"
	"namy-service/internal/pkg/response"
	"namy-service/internal/repository/postgres"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	devices     *postgres.DeviceRepository
	stores      *postgres.StoreRepository
	redemptions *postgres.RedemptionRepository
}

func NewProfileHandler(devices *postgres.DeviceRepository, stores *postgres.StoreRepository, redemptions *postgres.RedemptionRepository) *ProfileHandler {
	return &ProfileHandler{
		devices:     devices,
		stores:      stores,
		redemptions: redemptions,
	}
}

// GetDevice returns the calling device's loyalty record. The row is upserted
// first so a brand-new device reads back level 1 instead of a 404.
func (h *ProfileHandler) GetDevice(c *gin.Context) {
	deviceID := middleware.MustGetDeviceID(c)

	if err := h.devices.Ensure(c.Request.Context(), deviceID.String()); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load device", nil)
		return
	}

	device, err := h.devices.FindByID(c.Request.Context(), deviceID.String())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load device", nil)
		return
	}

	response.Success(c, http.StatusOK, "device retrieved", device)
}

// GetStore returns a store's public profile plus its lifetime successful
// redemption count.
func (h *ProfileHandler) GetStore(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid store id", err)
		return
	}

	s, err := h.stores.FindByID(c.Request.Context(), id)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "store not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load store", nil)
		return
	}

	count, err := h.redemptions.CountByStore(c.Request.Context(), id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load store", nil)
		return
	}

	response.Success(c, http.StatusOK, "store retrieved", gin.H{
		"store":       s,
		"redemptions": count,
	})
}
