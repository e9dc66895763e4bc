package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	orderdomain "inquiry-backend/internal/order/domain"
	"inquiry-backend/pkg/epay"

	"github.com/sirupsen/logrus"
)

const (
	notifyTimeout   = 10 * time.Second
	reconcileWindow = 48 * time.Hour
	reconcileBatch  = 50
	paymentDevice   = "mobile"
)

type paymentUsecase struct {
	orders   OrderStore
	gateway  Gateway
	key      string
	notifier Notifier
	now      func() time.Time
}

// NewPaymentUsecase wires the payment flows. key is the gateway shared
// secret. notifier may be nil.
func NewPaymentUsecase(orders OrderStore, gateway Gateway, key string, notifier Notifier) PaymentUsecase {
	return &paymentUsecase{
		orders:   orders,
		gateway:  gateway,
		key:      key,
		notifier: notifier,
		now:      time.Now,
	}
}

func (u *paymentUsecase) CreatePayment(ctx context.Context, userID, orderID uint, method string) (*CreatePaymentResult, error) {
	if !epay.ValidMethod(method) {
		return nil, ErrInvalidMethod
	}

	order, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderdomain.ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, orderdomain.ErrForbidden
	}
	switch order.PaymentStatus {
	case orderdomain.PaymentPaid:
		return nil, ErrAlreadyPaid
	case orderdomain.PaymentRefunded:
		return nil, ErrNotPayable
	}
	if order.PaymentAmount == nil || *order.PaymentAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	tradeNo := epay.FormatTradeNo(order.ID, u.now())
	resp, err := u.gateway.CreatePayment(ctx, epay.CreateOrderParams{
		OutTradeNo: tradeNo,
		Name:       fmt.Sprintf("订单支付 #%d", order.ID),
		Money:      strconv.FormatFloat(*order.PaymentAmount, 'f', 2, 64),
		Type:       method,
		Device:     paymentDevice,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &GatewayRejectedError{Msg: resp.Msg}
	}

	if err := u.orders.SetPaymentMethod(ctx, order.ID, method, tradeNo); err != nil {
		return nil, fmt.Errorf("record payment method: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "payment",
		"order_id":  order.ID,
		"trade_no":  tradeNo,
		"method":    method,
	}).Info("payment created")

	return &CreatePaymentResult{
		PaymentURL: resp.Data.PayURL,
		QRCode:     resp.Data.QRCode,
		TradeNo:    tradeNo,
	}, nil
}

func (u *paymentUsecase) HandleNotification(ctx context.Context, params map[string]string) (Outcome, error) {
	if !epay.VerifyChecksum(params, u.key) {
		return "", ErrInvalidChecksum
	}
	if params["trade_status"] != epay.TradeSuccess {
		return "", ErrTradeNotSuccessful
	}

	orderID, err := epay.ParseTradeNo(params["out_trade_no"])
	if err != nil {
		return "", err
	}

	return u.confirm(ctx, orderID, params["money"], params["trade_no"], "notify")
}

func (u *paymentUsecase) ReconcileOrder(ctx context.Context, orderID uint) (Outcome, error) {
	order, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", orderdomain.ErrOrderNotFound
	}
	if order.PaymentStatus == orderdomain.PaymentPaid {
		return OutcomeAlreadyPaid, nil
	}
	if order.MerchantTradeNo == nil || *order.MerchantTradeNo == "" {
		return "", ErrNoGatewayPayment
	}

	q, err := u.gateway.QueryOrder(ctx, *order.MerchantTradeNo)
	if err != nil {
		return "", err
	}
	if !q.Paid() {
		return OutcomePending, nil
	}
	return u.confirm(ctx, order.ID, q.Money.String(), q.TradeNo, "reconcile")
}

// ReconcilePending queries the gateway for recent unpaid orders and returns
// how many were confirmed.
func (u *paymentUsecase) ReconcilePending(ctx context.Context) (int, error) {
	pending, err := u.orders.FindPendingPayments(ctx, u.now().Add(-reconcileWindow), reconcileBatch)
	if err != nil {
		return 0, fmt.Errorf("find pending payments: %w", err)
	}

	applied := 0
	for _, o := range pending {
		if ctx.Err() != nil {
			return applied, ctx.Err()
		}
		outcome, err := u.ReconcileOrder(ctx, o.ID)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"component": "payment",
				"order_id":  o.ID,
			}).Warn("reconcile failed")
			continue
		}
		if outcome == OutcomeApplied {
			applied++
		}
	}
	return applied, nil
}

// confirm applies unpaid to paid for orderID. A paid order is reported as
// OutcomeAlreadyPaid without another write.
func (u *paymentUsecase) confirm(ctx context.Context, orderID uint, money, gatewayTradeNo, source string) (Outcome, error) {
	log := logrus.WithFields(logrus.Fields{
		"component": "payment",
		"order_id":  orderID,
		"source":    source,
	})

	order, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", orderdomain.ErrOrderNotFound
	}

	switch order.PaymentStatus {
	case orderdomain.PaymentPaid:
		log.Info("payment already applied")
		return OutcomeAlreadyPaid, nil
	case orderdomain.PaymentUnpaid:
	default:
		return "", ErrNotPayable
	}

	if !amountMatches(order.PaymentAmount, money) {
		log.WithField("money", money).Warn("payment amount mismatch")
		return "", ErrAmountMismatch
	}

	paidAt := u.now()
	applied, err := u.orders.MarkPaid(ctx, orderID, gatewayTradeNo, paidAt)
	if err != nil {
		return "", fmt.Errorf("mark order paid: %w", err)
	}
	if !applied {
		// Another delivery won the conditional update.
		current, err := u.orders.FindByID(ctx, orderID)
		if err != nil {
			return "", err
		}
		if current != nil && current.PaymentStatus == orderdomain.PaymentPaid {
			return OutcomeAlreadyPaid, nil
		}
		return "", ErrNotPayable
	}

	log.WithField("trade_no", gatewayTradeNo).Info("payment confirmed")

	order.PaymentStatus = orderdomain.PaymentPaid
	order.Status = orderdomain.StatusPaid
	order.PaymentTradeNo = &gatewayTradeNo
	order.PaymentTime = &paidAt
	u.notify(order)

	return OutcomeApplied, nil
}

func (u *paymentUsecase) notify(order *orderdomain.Order) {
	if u.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		u.notifier.PaymentConfirmed(ctx, order)
	}()
}

// amountMatches compares in cents and accepts a difference of one cent.
// An order without a positive stored amount never matches.
func amountMatches(stored *float64, money string) bool {
	if stored == nil || *stored <= 0 {
		return false
	}
	paid, err := strconv.ParseFloat(strings.TrimSpace(money), 64)
	if err != nil || math.IsNaN(paid) || math.IsInf(paid, 0) {
		return false
	}
	diff := math.Round(*stored*100) - math.Round(paid*100)
	return math.Abs(diff) <= 1
}
