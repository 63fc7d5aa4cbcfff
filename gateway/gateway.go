// Package gateway is the HTTP front of foodcart: the public order API used
// by the storefront and the JSON API behind the manager dashboard.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/example/foodcart/pkg/audit"
	"github.com/example/foodcart/pkg/catalog"
	"github.com/example/foodcart/pkg/config"
	"github.com/example/foodcart/pkg/orders"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Gateway struct {
	config    *config.Config
	orders    *orders.Service
	catalog   *catalog.Service
	history   audit.History
	validator *requestValidator
	limiter   *ipRateLimiter
	logger    *zap.Logger
	router    *gin.Engine
	server    *http.Server
}

// NewGateway builds the router. history may be nil, in which case the
// history endpoints answer 503.
func NewGateway(cfg *config.Config, logger *zap.Logger, orderSvc *orders.Service, catalogSvc *catalog.Service, history audit.History) (*Gateway, error) {
	rv, err := newRequestValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to set up request validation: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(logger))
	router.Use(metricsMiddleware())

	g := &Gateway{
		config:    cfg,
		orders:    orderSvc,
		catalog:   catalogSvc,
		history:   history,
		validator: rv,
		limiter:   newIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger),
		logger:    logger,
		router:    router,
	}
	g.SetupRoutes()
	return g, nil
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	g.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := g.router.Group("/api", g.limiter.middleware())
	{
		api.GET("/products", g.listProducts)
		api.GET("/banners", g.listBanners)
		api.POST("/order", g.createOrder)
	}

	manager := g.router.Group("/manager")
	{
		manager.GET("/restaurants", g.listRestaurants)
		manager.PATCH("/restaurants/:id", g.updateRestaurant)
		manager.PUT("/restaurants/:id/menu/:productID", g.setMenuAvailability)
		manager.GET("/restaurants/:id/history", g.entityHistory("restaurant"))
		manager.GET("/products", g.availabilityGrid)

		manager.GET("/orders", g.listActiveOrders)
		manager.GET("/orders/:id", g.getOrder)
		manager.PATCH("/orders/:id", g.updateOrder)
		manager.GET("/orders/:id/history", g.entityHistory("order"))
		manager.POST("/orders/:id/items", g.addOrderItem)
		manager.PATCH("/orders/:id/items/:itemID", g.updateOrderItem)
		manager.DELETE("/orders/:id/items/:itemID", g.removeOrderItem)
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

// idParam reads a positive integer path parameter, answering 400 itself
// when it is malformed.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return uint(id), true
}
