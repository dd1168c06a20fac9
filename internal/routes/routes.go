package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/quantfeed/signal-scout/internal/handlers"
	"github.com/quantfeed/signal-scout/internal/source"
)

// SetupRoutes configures all the routes for the application. Each webhook
// source gets a POST endpoint at its configured path.
func SetupRoutes(r *gin.Engine, signalHandler *handlers.SignalHandler, webhooks []*source.WebhookSource) {
	for _, wh := range webhooks {
		r.POST(wh.Path(), wh.Handle)
	}

	// API routes
	api := r.Group("/api/v1")
	{
		signals := api.Group("/signals")
		{
			signals.GET("", signalHandler.GetSignals)
			signals.GET("/:id", signalHandler.GetSignal)
		}

		api.GET("/channels/:channel/signals", signalHandler.GetChannelSignals)
		api.GET("/stats", signalHandler.GetStats)
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "signal-scout",
		})
	})

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Signal Scout",
			"version": "1.0.0",
			"endpoints": gin.H{
				"signals": "/api/v1/signals",
				"stats":   "/api/v1/stats",
				"health":  "/health",
			},
		})
	})
}
