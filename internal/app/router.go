// internal/app/router.go
package app

import (
	"net/http"

	countdownHandler "namy-service/internal/handlers/countdown"
	couponHandler "namy-service/internal/handlers/coupon"
	profileHandler "namy-service/internal/handlers/profile"
	redeemHandler "namy-service/internal/handlers/redeem"
	scanHandler "namy-service/internal/handlers/scan"
	unlockHandler "namy-service/internal/handlers/unlock"
	"namy-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes(
	coupons *couponHandler.CouponHandler,
	redeem *redeemHandler.RedeemHandler,
	unlock *unlockHandler.UnlockHandler,
	scan *scanHandler.ScanHandler,
	countdown *countdownHandler.CountdownHandler,
	profile *profileHandler.ProfileHandler,
) {
	s.engine.Use(middleware.Recovery(s.logger))

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api/v1")
	api.Use(middleware.DeviceIdentity())
	{
		api.GET("/coupons/:code/redeem-details", coupons.GetRedeemDetails)
		api.POST("/coupons/:code/redeem", redeem.Redeem)
		api.POST("/coupons/decode", coupons.Decode)
		api.GET("/coupons/cached", coupons.GetCached)
		api.GET("/coupons/:code/countdown", countdown.Stream)
		api.POST("/coupons/exchange", unlock.Exchange)

		api.POST("/scan", scan.Scan)

		api.GET("/ads/pair", unlock.GetAdPair)
		api.POST("/ads/watch", unlock.ReportWatch)

		api.GET("/devices/me", profile.GetDevice)
		api.GET("/stores/:id", profile.GetStore)
	}
}
