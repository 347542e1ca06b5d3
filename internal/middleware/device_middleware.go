// internal/middleware/device_middleware.go
package middleware

import (
	"namy-service/internal/pkg/deviceid"

	"github.com/gin-gonic/gin"
)

const (
	// DeviceHeader carries the client's persisted device identity.
	DeviceHeader = "X-Device-ID"

	deviceContextKey = "device_id"
)

// DeviceIdentity resolves the request's device identity: the header value
// when usable, a freshly minted one otherwise. The resolved identity is
// echoed back so a client without one can persist it, and is threaded through
// the context as an explicit value rather than read from ambient storage
// downstream.
func DeviceIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, minted := deviceid.Normalize(c.GetHeader(DeviceHeader))
		if minted {
			c.Header(DeviceHeader, id.String())
		}
		c.Set(deviceContextKey, id)
		c.Next()
	}
}

// GetDeviceID returns the resolved device identity for the request.
func GetDeviceID(c *gin.Context) (deviceid.Identity, bool) {
	v, exists := c.Get(deviceContextKey)
	if !exists {
		return "", false
	}
	id, ok := v.(deviceid.Identity)
	return id, ok
}

// MustGetDeviceID gets the device identity from context or panics; only
// valid on routes behind DeviceIdentity.
func MustGetDeviceID(c *gin.Context) deviceid.Identity {
	id, exists := GetDeviceID(c)
	if !exists {
		panic("device_id not found in context")
	}
	return id
}
