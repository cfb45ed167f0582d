package handlers

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"livey-backend/internal/limiter"
	"livey-backend/internal/middleware"
)

const OrderRateBucket = "orders:create"

type RouterConfig struct {
	CORSOrigins     []string
	CronSecret      string
	OrderRateLimit  int
	OrderRateWindow time.Duration

	// TrustedProxies lists the proxy IPs or CIDRs allowed to set
	// X-Forwarded-For. Empty means the peer address is the client.
	TrustedProxies []string
}

type RouterDeps struct {
	Orders   *OrdersHandler
	Sheets   *SheetsHandler
	Cron     *CronHandler
	Verifier middleware.TokenVerifier
	Limiter  limiter.Limiter
	Log      *zap.Logger
}

func NewRouter(cfg RouterConfig, d RouterDeps) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(middleware.Recovery(d.Log))
	router.Use(middleware.RequestLogger(d.Log))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	// Health check (no auth)
	router.GET("/health", HealthHandler)

	api := router.Group("/api/v1")

	// Public widget and provider endpoints
	createOrder := []gin.HandlerFunc{d.Orders.CreateOrder}
	if d.Limiter != nil && cfg.OrderRateLimit > 0 {
		createOrder = append([]gin.HandlerFunc{
			middleware.RateLimit(d.Limiter, OrderRateBucket, cfg.OrderRateLimit, cfg.OrderRateWindow, d.Log),
		}, createOrder...)
	}
	api.POST("/orders", createOrder...)
	api.GET("/sheets/callback", d.Sheets.Callback)

	// Scheduler
	api.POST("/cron/sync-sheets", middleware.CronSecret(cfg.CronSecret, d.Log), d.Cron.SyncSheets)

	// Seller routes
	seller := api.Group("")
	seller.Use(middleware.AuthMiddleware(d.Verifier, d.Log))

	seller.GET("/orders", d.Orders.ListOrders)
	seller.GET("/orders/:id", d.Orders.GetOrder)
	seller.PUT("/orders/:id/status", d.Orders.UpdateOrderStatus)

	seller.GET("/sheets/connect", d.Sheets.Connect)
	seller.GET("/sheets/status", d.Sheets.Status)
	seller.POST("/sheets/test", d.Sheets.Test)
	seller.DELETE("/sheets/disconnect", d.Sheets.Disconnect)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", middleware.CronSecretHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
