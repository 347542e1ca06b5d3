// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"time"

	"namy-service/internal/config"
	"namy-service/internal/db"
	countdownHandler "namy-service/internal/handlers/countdown"
	couponHandler "namy-service/internal/handlers/coupon"
	profileHandler "namy-service/internal/handlers/profile"
	redeemHandler "namy-service/internal/handlers/redeem"
	scanHandler "namy-service/internal/handlers/scan"
	unlockHandler "namy-service/internal/handlers/unlock"
	"namy-service/internal/pkg/payload"
	"namy-service/internal/pkg/qrscan"
	"namy-service/internal/pkg/session"
	"namy-service/internal/pkg/token"
	"namy-service/internal/pkg/viewcache"
	"namy-service/internal/repository/postgres"
	lifecycleService "namy-service/internal/service/lifecycle"
	redemptionService "namy-service/internal/service/redemption"
	scanService "namy-service/internal/service/scan"
	unlockService "namy-service/internal/service/unlock"
	"namy-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.Default()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- Payload cipher -----
	key, err := payload.ParseKey(s.cfg.PayloadKeyHex)
	if err != nil {
		return fmt.Errorf("invalid payload key: %w", err)
	}
	backend := payload.BackendSealed
	if s.cfg.PayloadBackend == "primitive" {
		backend = payload.BackendPrimitive
	}
	cipher, err := payload.New(key, backend)
	if err != nil {
		return fmt.Errorf("failed to build payload cipher: %w", err)
	}

	// ----- PostgreSQL -----
	pool, err := db.NewPostgresPool(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- Unlock token manager -----
	tokenManager, err := token.NewManager(s.cfg.UnlockToken)
	if err != nil {
		return fmt.Errorf("failed to build unlock token manager: %w", err)
	}

	// ----- Repositories -----
	couponRepo := postgres.NewCouponRepository(pool)
	storeRepo := postgres.NewStoreRepository(pool)
	staffRepo := postgres.NewStaffRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)
	adRepo := postgres.NewAdRepository(pool)
	deviceRepo := postgres.NewDeviceRepository(pool)
	redemptionRepo := postgres.NewRedemptionRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// ----- Redis-backed stores -----
	sessionStore := session.NewStore(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)
	viewCache := viewcache.New(redisClient, 5*time.Minute)

	// ----- Countdown hub -----
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	tracker := lifecycleService.NewTracker(hub, logger)

	// ----- Services -----
	lifecycleSvc := lifecycleService.NewService(couponRepo, logger)
	scanSvc := scanService.NewService(qrscan.NewExtractor(), cipher, lifecycleSvc, viewCache, logger)
	redemptionSvc := redemptionService.NewService(txRunner, couponRepo, staffRepo, deviceRepo, redemptionRepo, logger)
	unlockSvc := unlockService.NewService(
		adRepo,
		discountRepo,
		storeRepo,
		couponRepo,
		deviceRepo,
		sessionStore,
		rateLimiter,
		tokenManager,
		cipher,
		postgres.Summary,
		unlockService.Config{
			SessionTTL:       s.cfg.AdSessionTTL,
			RequiredWatches:  s.cfg.RequiredWatches,
			ExchangeCooldown: s.cfg.ExchangeCooldown,
			CouponValidity:   s.cfg.CouponValidity,
		},
		logger,
	)

	// ----- Handlers -----
	couponHandlerInst := couponHandler.NewCouponHandler(couponRepo, scanSvc)
	redeemHandlerInst := redeemHandler.NewRedeemHandler(redemptionSvc)
	unlockHandlerInst := unlockHandler.NewUnlockHandler(unlockSvc)
	scanHandlerInst := scanHandler.NewScanHandler(scanSvc)
	countdownHandlerInst := countdownHandler.NewCountdownHandler(couponRepo, hub, tracker, logger)
	profileHandlerInst := profileHandler.NewProfileHandler(deviceRepo, storeRepo, redemptionRepo)

	s.setupRoutes(couponHandlerInst, redeemHandlerInst, unlockHandlerInst, scanHandlerInst, countdownHandlerInst, profileHandlerInst)

	logger.Info("starting http server", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}
