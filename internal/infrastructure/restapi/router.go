package restapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the gin engine with CORS, metrics and the wallet
// API routes.
func NewRouter(handler *WalletHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/balance", handler.GetBalanceHandler)
		api.POST("/balance/refresh", handler.RefreshBalanceHandler)
		api.POST("/session", handler.StartSessionHandler)
		api.DELETE("/session", handler.EndSessionHandler)
		api.POST("/quote", handler.QuoteHandler)
		api.POST("/pay", handler.PayHandler)
		api.POST("/mock/deposit", handler.MockDepositHandler)
		api.POST("/mock/set", handler.MockSetHandler)
	}

	return router
}
