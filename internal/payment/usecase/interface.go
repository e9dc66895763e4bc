package usecase

import (
	"context"
	"errors"
	"time"

	orderdomain "inquiry-backend/internal/order/domain"
	"inquiry-backend/pkg/epay"
)

var (
	ErrInvalidChecksum    = errors.New("invalid checksum")
	ErrTradeNotSuccessful = errors.New("trade status is not successful")
	ErrAmountMismatch     = errors.New("payment amount mismatch")
	ErrNotPayable         = errors.New("order cannot be paid")
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrInvalidAmount      = errors.New("invalid payment amount")
	ErrNoGatewayPayment   = errors.New("order has no gateway payment")
)

// GatewayRejectedError carries the message of a gateway that refused to
// create a payment.
type GatewayRejectedError struct {
	Msg string
}

func (e *GatewayRejectedError) Error() string {
	if e.Msg == "" {
		return "payment creation failed"
	}
	return e.Msg
}

// Gateway is the payment aggregator.
type Gateway interface {
	CreatePayment(ctx context.Context, p epay.CreateOrderParams) (*epay.OrderResponse, error)
	QueryOrder(ctx context.Context, outTradeNo string) (*epay.QueryResponse, error)
}

// OrderStore is the slice of the order repository payments need.
type OrderStore interface {
	FindByID(ctx context.Context, id uint) (*orderdomain.Order, error)
	SetPaymentMethod(ctx context.Context, id uint, method, merchantTradeNo string) error
	MarkPaid(ctx context.Context, id uint, tradeNo string, paidAt time.Time) (bool, error)
	FindPendingPayments(ctx context.Context, since time.Time, limit int) ([]orderdomain.Order, error)
}

// Notifier is told about every order that transitions to paid.
type Notifier interface {
	PaymentConfirmed(ctx context.Context, order *orderdomain.Order)
}

// Outcome describes what a confirmation attempt did to the order.
type Outcome string

const (
	OutcomeApplied     Outcome = "applied"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomePending     Outcome = "pending"
)

type CreatePaymentResult struct {
	PaymentURL string
	QRCode     string
	TradeNo    string
}

type PaymentUsecase interface {
	CreatePayment(ctx context.Context, userID, orderID uint, method string) (*CreatePaymentResult, error)
	// HandleNotification authenticates a gateway notification and applies
	// the unpaid to paid transition it reports.
	HandleNotification(ctx context.Context, params map[string]string) (Outcome, error)
	ReconcileOrder(ctx context.Context, orderID uint) (Outcome, error)
	ReconcilePending(ctx context.Context) (int, error)
}
