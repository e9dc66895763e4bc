package api

import (
	"net/http"
	"time"

	authdelivery "inquiry-backend/internal/auth/delivery"
	"inquiry-backend/internal/auth/token"
	authusecase "inquiry-backend/internal/auth/usecase"
	catalogdelivery "inquiry-backend/internal/catalog/delivery"
	catalogusecase "inquiry-backend/internal/catalog/usecase"
	orderdelivery "inquiry-backend/internal/order/delivery"
	orderusecase "inquiry-backend/internal/order/usecase"
	paymentdelivery "inquiry-backend/internal/payment/delivery"
	paymentusecase "inquiry-backend/internal/payment/usecase"
	"inquiry-backend/pkg/config"
	"inquiry-backend/pkg/metrics"
	"inquiry-backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Dependencies are the use cases and infrastructure the HTTP layer serves.
type Dependencies struct {
	Config   *config.Config
	Tokens   token.Verifier
	Auth     authusecase.AuthUsecase
	Catalog  catalogusecase.CatalogUsecase
	Orders   orderusecase.OrderUsecase
	Payments paymentusecase.PaymentUsecase
	// Redis backs rate limiting. Nil disables it.
	Redis *redis.Client
}

type Handler struct {
	deps Dependencies

	authHandler       *authdelivery.AuthHandler
	catalogHandler    *catalogdelivery.CatalogHandler
	orderHandler      *orderdelivery.OrderHandler
	adminOrderHandler *orderdelivery.AdminOrderHandler
	paymentHandler    *paymentdelivery.PaymentHandler
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		deps:              deps,
		authHandler:       authdelivery.NewAuthHandler(deps.Auth),
		catalogHandler:    catalogdelivery.NewCatalogHandler(deps.Catalog),
		orderHandler:      orderdelivery.NewOrderHandler(deps.Orders),
		adminOrderHandler: orderdelivery.NewAdminOrderHandler(deps.Orders),
		paymentHandler:    paymentdelivery.NewPaymentHandler(deps.Payments),
	}
}

// Engine builds the gin engine with the global middleware chain and routes.
func (h *Handler) Engine() *gin.Engine {
	if h.deps.Config != nil && h.deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		metrics.Handler(),
		middleware.CORS(),
	)
	r.GET("/metrics", metrics.Exposer())

	SetupRoutes(r, h)
	return r
}

// Server wraps the engine in an http.Server listening on addr.
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *Handler) rateLimit(prefix string) gin.HandlerFunc {
	limit := 10
	if h.deps.Config != nil && h.deps.Config.RateLimitPerMinute > 0 {
		limit = h.deps.Config.RateLimitPerMinute
	}
	return middleware.RateLimit(h.deps.Redis, prefix, limit, time.Minute)
}
