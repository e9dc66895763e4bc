package api

import (
	"net/http"

	"inquiry-backend/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	requireAuth := delivery.AuthMiddleware(h.deps.Tokens)
	requireAdmin := delivery.RequireAdmin(h.deps.Auth)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Account routes
		api.POST("/register", h.rateLimit("register"), h.authHandler.Register)
		api.POST("/login", h.rateLimit("login"), h.authHandler.Login)
		api.GET("/me", requireAuth, h.authHandler.Me)

		api.GET("/services", delivery.OptionalAuth(h.deps.Tokens), h.catalogHandler.ListServices)

		// Order routes (protected)
		orders := api.Group("/orders")
		orders.Use(requireAuth)
		{
			orders.POST("", h.orderHandler.CreateOrder)
			orders.GET("/list", h.orderHandler.ListOrders)
			orders.GET("/:id", h.orderHandler.GetOrder)
		}
		api.GET("/files/*key", requireAuth, h.orderHandler.GetFile)

		// Payment routes. The notify endpoints are called by the gateway and
		// the payer's browser, so they carry no session.
		payment := api.Group("/payment")
		{
			payment.POST("/create", requireAuth, h.paymentHandler.CreatePayment)
			payment.POST("/notify", h.paymentHandler.Notify)
			payment.GET("/notify", h.paymentHandler.Return)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", h.authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", h.authHandler.UnregisterFCMToken)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(requireAuth, requireAdmin)
		{
			admin.GET("/orders", h.adminOrderHandler.ListOrders)
			admin.GET("/orders/export", h.adminOrderHandler.ExportOrders)
			admin.GET("/orders/:id", h.adminOrderHandler.GetOrder)
			admin.PATCH("/orders/:id", h.adminOrderHandler.UpdateOrder)
			admin.POST("/orders/:id/reconcile", h.paymentHandler.Reconcile)
			admin.GET("/files/*key", h.adminOrderHandler.GetFile)
		}
	}
}
