package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inquiry-backend/internal/auth/token"
	authusecase "inquiry-backend/internal/auth/usecase"
	orderdomain "inquiry-backend/internal/order/domain"
	orderusecase "inquiry-backend/internal/order/usecase"
	paymentusecase "inquiry-backend/internal/payment/usecase"
	"inquiry-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth struct {
	authusecase.AuthUsecase
	admins map[uint]bool
}

func (s *stubAuth) IsAdmin(_ context.Context, id uint) (bool, error) {
	return s.admins[id], nil
}

type stubOrders struct {
	orderusecase.OrderUsecase
}

func (stubOrders) AdminListOrders(context.Context, orderdomain.OrderFilter) ([]orderdomain.Order, int64, error) {
	return []orderdomain.Order{{ID: 1}}, 1, nil
}

type stubPayments struct {
	paymentusecase.PaymentUsecase
	notified bool
}

func (s *stubPayments) HandleNotification(context.Context, map[string]string) (paymentusecase.Outcome, error) {
	s.notified = true
	return paymentusecase.OutcomeApplied, nil
}

func newTestEngine(t *testing.T) (*gin.Engine, *token.Service, *stubPayments) {
	t.Helper()
	tokens := token.NewService("router-test-secret", 0)
	payments := &stubPayments{}
	h := NewHandler(Dependencies{
		Config:   &config.Config{Env: config.EnvDevelopment},
		Tokens:   tokens,
		Auth:     &stubAuth{admins: map[uint]bool{1: true}},
		Orders:   stubOrders{},
		Payments: payments,
	})
	return h.Engine(), tokens, payments
}

func bearer(t *testing.T, tokens *token.Service, id uint) string {
	t.Helper()
	tok, err := tokens.Issue(id, "user@example.com")
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestEngine(t)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAdminRoutes_DefaultDeny(t *testing.T) {
	r, tokens, _ := newTestEngine(t)

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{name: "anonymous", status: http.StatusUnauthorized},
		{name: "garbage token", auth: "Bearer nope", status: http.StatusUnauthorized},
		{name: "regular user", auth: bearer(t, tokens, 2), status: http.StatusForbidden},
		{name: "admin", auth: bearer(t, tokens, 1), status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestPaymentNotify_NeedsNoSession(t *testing.T) {
	r, _, payments := newTestEngine(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/notify", strings.NewReader("out_trade_no=ORDER_1_1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())
	assert.True(t, payments.notified)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	r, _, _ := newTestEngine(t)

	for _, path := range []string{"/api/me", "/api/orders/list", "/api/orders/1", "/api/files/orders/1/x.pdf"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestMetricsExposed(t *testing.T) {
	r, _, _ := newTestEngine(t)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
