package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"namy-service/internal/pkg/deviceid"

	"github.com/gin-gonic/gin"
)

func deviceTestRouter(captured *deviceid.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(DeviceIdentity())
	r.GET("/probe", func(c *gin.Context) {
		*captured = MustGetDeviceID(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestDeviceIdentityPassthrough(t *testing.T) {
	var got deviceid.Identity
	r := deviceTestRouter(&got)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(DeviceHeader, "device-abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got.String() != "device-abc-123" {
		t.Fatalf("device id = %q, want device-abc-123", got)
	}
	if w.Header().Get(DeviceHeader) != "" {
		t.Fatal("header echoed back for an already-valid identity")
	}
}

func TestDeviceIdentityMintsWhenMissing(t *testing.T) {
	var got deviceid.Identity
	r := deviceTestRouter(&got)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got == "" {
		t.Fatal("no identity resolved")
	}
	echoed := w.Header().Get(DeviceHeader)
	if echoed != got.String() {
		t.Fatalf("echoed %q, resolved %q", echoed, got)
	}
}

func TestDeviceIdentityReplacesInvalid(t *testing.T) {
	var got deviceid.Identity
	r := deviceTestRouter(&got)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(DeviceHeader, "no good/../identity")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got.String() == "no good/../identity" {
		t.Fatal("invalid identity accepted")
	}
	if w.Header().Get(DeviceHeader) != got.String() {
		t.Fatal("replacement identity not echoed")
	}
}
