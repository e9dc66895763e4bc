package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	authdelivery "inquiry-backend/internal/auth/delivery"
	orderdomain "inquiry-backend/internal/order/domain"
	"inquiry-backend/internal/payment/usecase"
	"inquiry-backend/pkg/epay"
	"inquiry-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Literal acknowledgements the gateway expects. Anything but "success"
// makes it retry.
const (
	ackSuccess = "success"
	ackFail    = "fail"
)

type PaymentHandler struct {
	paymentUsecase usecase.PaymentUsecase
}

func NewPaymentHandler(paymentUsecase usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{paymentUsecase: paymentUsecase}
}

type CreatePaymentRequest struct {
	OrderID       json.Number `json:"orderId" binding:"required"`
	PaymentMethod string      `json:"paymentMethod" binding:"required"`
}

// CreatePayment
// POST /api/payment/create
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, _ := authdelivery.SubjectID(c)

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order ID and payment method are required"})
		return
	}
	orderID, err := strconv.ParseUint(req.OrderID.String(), 10, 64)
	if err != nil || orderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	res, err := h.paymentUsecase.CreatePayment(c.Request.Context(), userID, uint(orderID), req.PaymentMethod)
	if err != nil {
		var rejected *usecase.GatewayRejectedError
		switch {
		case errors.Is(err, usecase.ErrInvalidMethod),
			errors.Is(err, usecase.ErrAlreadyPaid),
			errors.Is(err, usecase.ErrNotPayable),
			errors.Is(err, usecase.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, orderdomain.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, orderdomain.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.As(err, &rejected):
			c.JSON(http.StatusInternalServerError, gin.H{"error": rejected.Error()})
		default:
			logrus.WithError(err).WithField("component", "payment").Error("payment creation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"paymentUrl": res.PaymentURL,
		"qrcode":     res.QRCode,
	})
}

// Notify receives the gateway's asynchronous notification and answers with
// the literal "success" or "fail".
// POST /api/payment/notify
func (h *PaymentHandler) Notify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.ack(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	source := c.Request.PostForm
	if len(source) == 0 {
		source = c.Request.URL.Query()
	}
	params := make(map[string]string, len(source))
	for k, v := range source {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	outcome, err := h.paymentUsecase.HandleNotification(c.Request.Context(), params)
	switch {
	case err == nil:
		h.ack(c, http.StatusOK, string(outcome), nil)
	case errors.Is(err, usecase.ErrInvalidChecksum):
		h.ack(c, http.StatusBadRequest, "invalid_checksum", err)
	case errors.Is(err, usecase.ErrTradeNotSuccessful):
		h.ack(c, http.StatusBadRequest, "not_successful", err)
	case errors.Is(err, epay.ErrMalformedTradeNo):
		h.ack(c, http.StatusBadRequest, "malformed_trade_no", err)
	case errors.Is(err, usecase.ErrAmountMismatch):
		h.ack(c, http.StatusBadRequest, "amount_mismatch", err)
	case errors.Is(err, usecase.ErrNotPayable):
		h.ack(c, http.StatusBadRequest, "not_payable", err)
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		h.ack(c, http.StatusNotFound, "order_not_found", err)
	default:
		h.ack(c, http.StatusInternalServerError, "error", err)
	}
}

func (h *PaymentHandler) ack(c *gin.Context, status int, result string, err error) {
	metrics.PaymentNotifications.WithLabelValues(result).Inc()
	if err != nil {
		entry := logrus.WithError(err).WithFields(logrus.Fields{
			"component":    "payment",
			"out_trade_no": c.Request.PostForm.Get("out_trade_no"),
			"result":       result,
		})
		if status >= http.StatusInternalServerError {
			entry.Error("notification failed")
		} else {
			entry.Warn("notification rejected")
		}
		c.String(status, ackFail)
		return
	}
	c.String(status, ackSuccess)
}

// Return is where the payer's browser lands after paying.
// GET /api/payment/notify
func (h *PaymentHandler) Return(c *gin.Context) {
	if orderID, err := epay.ParseTradeNo(c.Query("out_trade_no")); err == nil {
		c.Redirect(http.StatusFound, fmt.Sprintf("/order/%d?payment=success", orderID))
		return
	}
	c.Redirect(http.StatusFound, "/payment/success")
}

// Reconcile asks the gateway about one order and applies a confirmed
// payment.
// POST /api/admin/orders/:id/reconcile
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	outcome, err := h.paymentUsecase.ReconcileOrder(c.Request.Context(), uint(orderID))
	if err != nil {
		switch {
		case errors.Is(err, orderdomain.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, usecase.ErrNoGatewayPayment),
			errors.Is(err, usecase.ErrAmountMismatch),
			errors.Is(err, usecase.ErrNotPayable):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logrus.WithError(err).WithField("component", "payment").Error("reconcile failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to query payment gateway"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": outcome})
}
