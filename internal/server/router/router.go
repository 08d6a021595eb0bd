package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by the router. Webhook is optional.
type Handlers struct {
	Webhook  *handlers.WebhookHandler
	Shifts   *handlers.ShiftHandler
	Finance  *handlers.FinanceHandler
	Entities *handlers.EntityHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/send-message", h.Webhook.SendMessage)
	}

	api := r.Group("/api/v1")

	shifts := api.Group("/shifts")
	shifts.GET("", h.Shifts.List)
	shifts.POST("", h.Shifts.Create)
	shifts.PUT("/:id", h.Shifts.Edit)
	shifts.DELETE("/:id", h.Shifts.Delete)
	shifts.DELETE("/recurrence/:rid", h.Shifts.DeleteRecurrence)
	shifts.PATCH("/stations", h.Shifts.RenameStation)
	shifts.POST("/suggest", h.Shifts.Suggest)

	fin := api.Group("/finance")
	fin.GET("/ledger", h.Finance.Ledger)
	fin.GET("/cashflow", h.Finance.CashFlow)
	fin.GET("/chart", h.Finance.Chart)
	fin.POST("/promote", h.Finance.Promote)
	fin.GET("/export.xlsx", h.Finance.Export)
	fin.POST("/publish", h.Finance.Publish)

	h.Entities.Register(api)

	if logger != nil {
		logger.Info("router initialized", zap.Int("routes", len(r.Routes())))
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
