// internal/handlers/scan/scan_handler.go
package scan

import (
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"

	"namy-service/internal/middleware"
	xerrors "namy-service/internal/pkg/errors"
	"namy-service/internal/pkg/response"
	service "namy-service/internal/service/scan"

	"github.com/gin-gonic/gin"
)

// Uploads beyond this are rejected before decoding.
const maxUploadBytes = 10 << 20

type ScanHandler struct {
	scanService *service.Service
}

func NewScanHandler(scanService *service.Service) *ScanHandler {
	return &ScanHandler{scanService: scanService}
}

// Scan extracts a QR payload from an uploaded image. Optional form fields:
// cropX/cropY/cropW/cropH select a region, enhance=true runs the contrast
// stretch first.
func (h *ScanHandler) Scan(c *gin.Context) {
	deviceID := middleware.MustGetDeviceID(c)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "image file is required", err)
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "image too large", nil)
		return
	}

	img, _, err := image.Decode(file)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "unsupported image format", nil)
		return
	}

	crop := parseCrop(c)
	enhance := c.PostForm("enhance") == "true"

	verdict, err := h.scanService.ScanImage(c.Request.Context(), img, crop, enhance, deviceID.String())
	if err != nil {
		writeScanError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "coupon decoded", verdict)
}

// parseCrop reads the optional crop rectangle; a partial or invalid spec
// falls back to the full image.
func parseCrop(c *gin.Context) image.Rectangle {
	x, errX := strconv.Atoi(c.PostForm("cropX"))
	y, errY := strconv.Atoi(c.PostForm("cropY"))
	w, errW := strconv.Atoi(c.PostForm("cropW"))
	h, errH := strconv.Atoi(c.PostForm("cropH"))
	if errX != nil || errY != nil || errW != nil || errH != nil || w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(x, y, x+w, y+h)
}

// writeScanError keeps crypto and schema details out of user-facing output.
func writeScanError(c *gin.Context, err error) {
	var schemaErr *xerrors.SchemaError
	switch {
	case xerrors.Is(err, xerrors.ErrUnsupportedPayload):
		response.Error(c, http.StatusUnprocessableEntity, "no coupon found in image", nil)
	case xerrors.Is(err, xerrors.ErrPayloadFormat),
		xerrors.Is(err, xerrors.ErrPayloadAuth),
		errors.As(err, &schemaErr):
		response.Error(c, http.StatusUnprocessableEntity, "invalid coupon", nil)
	default:
		response.Error(c, http.StatusInternalServerError, "failed to scan image", nil)
	}
}
