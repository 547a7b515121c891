// Package server exposes the engine's boundary operations over HTTP and
// websocket.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dzpay/bankcore/internal/aggregator"
	"github.com/dzpay/bankcore/internal/alerts"
	"github.com/dzpay/bankcore/internal/connector"
	"github.com/dzpay/bankcore/internal/feed"
	"github.com/dzpay/bankcore/internal/ledger"
	"github.com/dzpay/bankcore/internal/registry"
	"github.com/dzpay/bankcore/internal/router"
)

// Server represents the HTTP server
type Server struct {
	logger      *zap.Logger
	registry    *registry.Registry
	connections connector.ConnectionManager
	feedSvc     *feed.Service
	routerSvc   *router.Service
	metricsSvc  *aggregator.Service
	bus         *alerts.Bus
	store       *ledger.Store
	simulator   *ledger.Simulator
}

// NewServer creates a new HTTP server
func NewServer(
	logger *zap.Logger,
	reg *registry.Registry,
	connections connector.ConnectionManager,
	feedSvc *feed.Service,
	routerSvc *router.Service,
	metricsSvc *aggregator.Service,
	bus *alerts.Bus,
	store *ledger.Store,
	simulator *ledger.Simulator,
) *Server {
	return &Server{
		logger:      logger,
		registry:    reg,
		connections: connections,
		feedSvc:     feedSvc,
		routerSvc:   routerSvc,
		metricsSvc:  metricsSvc,
		bus:         bus,
		store:       store,
		simulator:   simulator,
	}
}

// Router creates the HTTP router
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	r.Use(ginzap.RecoveryWithZap(s.logger, true))
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ws/realtime", s.handleWebSocket)

	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/banks", s.handleListBanks)
			v1.GET("/market", s.handleMarketData)
			v1.GET("/system/status", s.handleSystemStatus)

			authed := v1.Group("", s.authMiddleware())
			{
				authed.GET("/accounts/:accountNumber/balance", s.handleBalance)
				authed.GET("/accounts/:accountNumber/transactions", s.handleTransactionHistory)
				authed.POST("/transfers", s.handleSubmitTransfer)
				authed.GET("/transfers/:id", s.handleGetTransfer)
				authed.POST("/transfers/:id/cancel", s.handleCancelTransfer)
				authed.POST("/transfers/:id/reverse", s.handleReverseTransfer)
				authed.GET("/alerts", s.handleRecentAlerts)
			}
		}
	}

	return r
}
