package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	orderdomain "inquiry-backend/internal/order/domain"
	"inquiry-backend/pkg/epay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "merchant-key"

type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[uint]*orderdomain.Order
	markCalls int
	// stolen simulates a concurrent delivery winning the conditional update.
	stolen  bool
	findErr error
	methods map[uint]string
}

func newFakeOrderStore(orders ...*orderdomain.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: map[uint]*orderdomain.Order{}, methods: map[uint]string{}}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) FindByID(_ context.Context, id uint) (*orderdomain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrderStore) SetPaymentMethod(_ context.Context, id uint, method, tradeNo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[id] = method
	s.orders[id].MerchantTradeNo = &tradeNo
	return nil
}

func (s *fakeOrderStore) MarkPaid(_ context.Context, id uint, tradeNo string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCalls++
	o := s.orders[id]
	if s.stolen {
		o.PaymentStatus = orderdomain.PaymentPaid
		o.Status = orderdomain.StatusPaid
		return false, nil
	}
	if o.PaymentStatus != orderdomain.PaymentUnpaid {
		return false, nil
	}
	o.PaymentStatus = orderdomain.PaymentPaid
	o.Status = orderdomain.StatusPaid
	o.PaymentTradeNo = &tradeNo
	o.PaymentTime = &paidAt
	return true, nil
}

func (s *fakeOrderStore) FindPendingPayments(_ context.Context, _ time.Time, _ int) ([]orderdomain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orderdomain.Order
	for _, o := range s.orders {
		if o.PaymentStatus == orderdomain.PaymentUnpaid && o.MerchantTradeNo != nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeGateway struct {
	createResp *epay.OrderResponse
	createErr  error
	created    epay.CreateOrderParams
	queries    map[string]*epay.QueryResponse
}

func (g *fakeGateway) CreatePayment(_ context.Context, p epay.CreateOrderParams) (*epay.OrderResponse, error) {
	g.created = p
	return g.createResp, g.createErr
}

func (g *fakeGateway) QueryOrder(_ context.Context, outTradeNo string) (*epay.QueryResponse, error) {
	if q, ok := g.queries[outTradeNo]; ok {
		return q, nil
	}
	return &epay.QueryResponse{Code: "1", Status: "0"}, nil
}

type recordingNotifier struct {
	ch chan uint
}

func (n *recordingNotifier) PaymentConfirmed(_ context.Context, order *orderdomain.Order) {
	n.ch <- order.ID
}

func amount(v float64) *float64 { return &v }

func unpaidOrder(id uint, price float64) *orderdomain.Order {
	return &orderdomain.Order{
		ID:            id,
		UserID:        7,
		Status:        orderdomain.StatusPending,
		PaymentStatus: orderdomain.PaymentUnpaid,
		PaymentAmount: amount(price),
	}
}

func signedNotification(params map[string]string) map[string]string {
	params["sign"] = epay.ComputeChecksum(params, testKey)
	params["sign_type"] = "MD5"
	return params
}

func successNotification(orderID uint, money string) map[string]string {
	return signedNotification(map[string]string{
		"pid":          "1001",
		"trade_no":     "2024010112345",
		"out_trade_no": epay.FormatTradeNo(orderID, time.UnixMilli(1700000000000)),
		"type":         epay.MethodAlipay,
		"name":         "order",
		"money":        money,
		"trade_status": epay.TradeSuccess,
	})
}

func TestHandleNotification_AppliesPayment(t *testing.T) {
	store := newFakeOrderStore(unpaidOrder(5, 99.9))
	notifier := &recordingNotifier{ch: make(chan uint, 1)}
	uc := NewPaymentUsecase(store, &fakeGateway{}, testKey, notifier)

	outcome, err := uc.HandleNotification(context.Background(), successNotification(5, "99.90"))

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	o := store.orders[5]
	assert.Equal(t, orderdomain.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, orderdomain.StatusPaid, o.Status)
	require.NotNil(t, o.PaymentTradeNo)
	assert.Equal(t, "2024010112345", *o.PaymentTradeNo)
	assert.NotNil(t, o.PaymentTime)

	select {
	case id := <-notifier.ch:
		assert.Equal(t, uint(5), id)
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestHandleNotification_ReplayIsIdempotent(t *testing.T) {
	store := newFakeOrderStore(unpaidOrder(5, 10))
	uc := NewPaymentUsecase(store, &fakeGateway{}, testKey, nil)
	params := successNotification(5, "10.00")

	first, err := uc.HandleNotification(context.Background(), params)
	require.NoError(t, err)
	paidAt := *store.orders[5].PaymentTime

	second, err := uc.HandleNotification(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, first)
	assert.Equal(t, OutcomeAlreadyPaid, second)
	assert.Equal(t, 1, store.markCalls)
	assert.Equal(t, paidAt, *store.orders[5].PaymentTime)
}

func TestHandleNotification_LostRaceReportsAlreadyPaid(t *testing.T) {
	store := newFakeOrderStore(unpaidOrder(5, 10))
	store.stolen = true
	uc := NewPaymentUsecase(store, &fakeGateway{}, testKey, nil)

	outcome, err := uc.HandleNotification(context.Background(), successNotification(5, "10.00"))

	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyPaid, outcome)
}

func TestHandleNotification_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		order   *orderdomain.Order
		params  func() map[string]string
		wantErr error
	}{
		{
			name:  "bad checksum",
			order: unpaidOrder(5, 10),
			params: func() map[string]string {
				p := successNotification(5, "10.00")
				p["money"] = "0.01"
				return p
			},
			wantErr: ErrInvalidChecksum,
		},
		{
			name:  "missing checksum",
			order: unpaidOrder(5, 10),
			params: func() map[string]string {
				p := successNotification(5, "10.00")
				delete(p, "sign")
				return p
			},
			wantErr: ErrInvalidChecksum,
		},
		{
			name:  "trade not successful",
			order: unpaidOrder(5, 10),
			params: func() map[string]string {
				return signedNotification(map[string]string{
					"out_trade_no": "ORDER_5_1700000000000",
					"money":        "10.00",
					"trade_status": "WAIT_BUYER_PAY",
				})
			},
			wantErr: ErrTradeNotSuccessful,
		},
		{
			name:  "malformed trade number",
			order: unpaidOrder(5, 10),
			params: func() map[string]string {
				return signedNotification(map[string]string{
					"out_trade_no": "ORDER_abc",
					"money":        "10.00",
					"trade_status": epay.TradeSuccess,
				})
			},
			wantErr: epay.ErrMalformedTradeNo,
		},
		{
			name:    "unknown order",
			order:   unpaidOrder(5, 10),
			params:  func() map[string]string { return successNotification(6, "10.00") },
			wantErr: orderdomain.ErrOrderNotFound,
		},
		{
			name:    "amount mismatch",
			order:   unpaidOrder(5, 10),
			params:  func() map[string]string { return successNotification(5, "0.01") },
			wantErr: ErrAmountMismatch,
		},
		{
			name:    "order without amount",
			order:   &orderdomain.Order{ID: 5, PaymentStatus: orderdomain.PaymentUnpaid},
			params:  func() map[string]string { return successNotification(5, "10.00") },
			wantErr: ErrAmountMismatch,
		},
		{
			name: "refunded order",
			order: func() *orderdomain.Order {
				o := unpaidOrder(5, 10)
				o.PaymentStatus = orderdomain.PaymentRefunded
				return o
			}(),
			params:  func() map[string]string { return successNotification(5, "10.00") },
			wantErr: ErrNotPayable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeOrderStore(tt.order)
			uc := NewPaymentUsecase(store, &fakeGateway{}, testKey, nil)

			outcome, err := uc.HandleNotification(context.Background(), tt.params())

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, outcome)
			assert.Zero(t, store.markCalls)
			assert.NotEqual(t, orderdomain.PaymentPaid, store.orders[5].PaymentStatus)
		})
	}
}

func TestHandleNotification_StoreError(t *testing.T) {
	store := newFakeOrderStore(unpaidOrder(5, 10))
	store.findErr = errors.New("connection reset")
	uc := NewPaymentUsecase(store, &fakeGateway{}, testKey, nil)

	_, err := uc.HandleNotification(context.Background(), successNotification(5, "10.00"))

	assert.EqualError(t, err, "connection reset")
}

func TestCreatePayment(t *testing.T) {
	okResp := &epay.OrderResponse{Code: "1"}
	okResp.Data.PayURL = "https://pay.example.com/p/1"
	okResp.Data.QRCode = "weixin://qr"

	t.Run("success records method and trade number", func(t *testing.T) {
		store := newFakeOrderStore(unpaidOrder(5, 99.9))
		gw := &fakeGateway{createResp: okResp}
		uc := NewPaymentUsecase(store, gw, testKey, nil).(*paymentUsecase)
		uc.now = func() time.Time { return time.UnixMilli(1700000000123) }

		res, err := uc.CreatePayment(context.Background(), 7, 5, epay.MethodWxpay)

		require.NoError(t, err)
		assert.Equal(t, "https://pay.example.com/p/1", res.PaymentURL)
		assert.Equal(t, "weixin://qr", res.QRCode)
		assert.Equal(t, "ORDER_5_1700000000123", res.TradeNo)
		assert.Equal(t, "99.90", gw.created.Money)
		assert.Equal(t, epay.MethodWxpay, gw.created.Type)
		assert.Equal(t, "ORDER_5_1700000000123", gw.created.OutTradeNo)
		assert.Equal(t, epay.MethodWxpay, store.methods[5])
		assert.Equal(t, "ORDER_5_1700000000123", *store.orders[5].MerchantTradeNo)
	})

	paid := unpaidOrder(5, 10)
	paid.PaymentStatus = orderdomain.PaymentPaid
	refunded := unpaidOrder(5, 10)
	refunded.PaymentStatus = orderdomain.PaymentRefunded

	tests := []struct {
		name    string
		order   *orderdomain.Order
		userID  uint
		method  string
		gateway *fakeGateway
		wantErr error
	}{
		{name: "invalid method", order: unpaidOrder(5, 10), userID: 7, method: "paypal", wantErr: ErrInvalidMethod},
		{name: "unknown order", order: unpaidOrder(6, 10), userID: 7, method: epay.MethodAlipay, wantErr: orderdomain.ErrOrderNotFound},
		{name: "someone else's order", order: unpaidOrder(5, 10), userID: 8, method: epay.MethodAlipay, wantErr: orderdomain.ErrForbidden},
		{name: "already paid", order: paid, userID: 7, method: epay.MethodAlipay, wantErr: ErrAlreadyPaid},
		{name: "refunded", order: refunded, userID: 7, method: epay.MethodAlipay, wantErr: ErrNotPayable},
		{name: "no amount", order: &orderdomain.Order{ID: 5, UserID: 7, PaymentStatus: orderdomain.PaymentUnpaid}, userID: 7, method: epay.MethodAlipay, wantErr: ErrInvalidAmount},
		{name: "gateway transport error", order: unpaidOrder(5, 10), userID: 7, method: epay.MethodAlipay, gateway: &fakeGateway{createErr: errors.New("timeout")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeOrderStore(tt.order)
			gw := tt.gateway
			if gw == nil {
				gw = &fakeGateway{createResp: okResp}
			}
			uc := NewPaymentUsecase(store, gw, testKey, nil)

			res, err := uc.CreatePayment(context.Background(), tt.userID, 5, tt.method)

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Nil(t, res)
			assert.Empty(t, store.methods)
		})
	}

	t.Run("gateway rejection carries its message", func(t *testing.T) {
		store := newFakeOrderStore(unpaidOrder(5, 10))
		gw := &fakeGateway{createResp: &epay.OrderResponse{Code: "-1", Msg: "商户未开通该支付方式"}}
		uc := NewPaymentUsecase(store, gw, testKey, nil)

		_, err := uc.CreatePayment(context.Background(), 7, 5, epay.MethodQQpay)

		var rejected *GatewayRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, "商户未开通该支付方式", rejected.Error())
		assert.Empty(t, store.methods)
	})
}

func TestReconcileOrder(t *testing.T) {
	tradeNo := "ORDER_5_1700000000000"

	t.Run("paid at gateway is applied", func(t *testing.T) {
		o := unpaidOrder(5, 10)
		o.MerchantTradeNo = &tradeNo
		store := newFakeOrderStore(o)
		gw := &fakeGateway{queries: map[string]*epay.QueryResponse{
			tradeNo: {Code: "1", Status: "1", TradeNo: "G-1", Money: "10.00"},
		}}
		uc := NewPaymentUsecase(store, gw, testKey, nil)

		outcome, err := uc.ReconcileOrder(context.Background(), 5)

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		assert.Equal(t, "G-1", *store.orders[5].PaymentTradeNo)
	})

	t.Run("unpaid at gateway stays pending", func(t *testing.T) {
		o := unpaidOrder(5, 10)
		o.MerchantTradeNo = &tradeNo
		store := newFakeOrderStore(o)
		uc := NewPaymentUsecase(store, &fakeGateway{}, testKey, nil)

		outcome, err := uc.ReconcileOrder(context.Background(), 5)

		require.NoError(t, err)
		assert.Equal(t, OutcomePending, outcome)
		assert.Zero(t, store.markCalls)
	})

	t.Run("order never sent to gateway", func(t *testing.T) {
		store := newFakeOrderStore(unpaidOrder(5, 10))
		uc := NewPaymentUsecase(store, &fakeGateway{}, testKey, nil)

		_, err := uc.ReconcileOrder(context.Background(), 5)

		assert.ErrorIs(t, err, ErrNoGatewayPayment)
	})

	t.Run("already paid skips the gateway", func(t *testing.T) {
		o := unpaidOrder(5, 10)
		o.PaymentStatus = orderdomain.PaymentPaid
		store := newFakeOrderStore(o)
		uc := NewPaymentUsecase(store, &fakeGateway{}, testKey, nil)

		outcome, err := uc.ReconcileOrder(context.Background(), 5)

		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyPaid, outcome)
	})
}

func TestReconcilePending(t *testing.T) {
	paidNo, waitingNo := "ORDER_1_1", "ORDER_2_1"
	a := unpaidOrder(1, 10)
	a.MerchantTradeNo = &paidNo
	b := unpaidOrder(2, 20)
	b.MerchantTradeNo = &waitingNo
	store := newFakeOrderStore(a, b, unpaidOrder(3, 30))
	gw := &fakeGateway{queries: map[string]*epay.QueryResponse{
		paidNo: {Code: "1", Status: "1", TradeNo: "G-1", Money: "10"},
	}}
	uc := NewPaymentUsecase(store, gw, testKey, nil)

	applied, err := uc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, orderdomain.PaymentPaid, store.orders[1].PaymentStatus)
	assert.Equal(t, orderdomain.PaymentUnpaid, store.orders[2].PaymentStatus)
	assert.Equal(t, orderdomain.PaymentUnpaid, store.orders[3].PaymentStatus)
}

func TestAmountMatches(t *testing.T) {
	tests := []struct {
		name   string
		stored *float64
		money  string
		want   bool
	}{
		{"exact", amount(99.9), "99.90", true},
		{"integer form", amount(10), "10", true},
		{"one cent under", amount(10), "9.99", true},
		{"two cents under", amount(10), "9.98", false},
		{"float noise", amount(0.1 + 0.2), "0.30", true},
		{"nil stored", nil, "10.00", false},
		{"zero stored", amount(0), "0.00", false},
		{"not a number", amount(10), "ten", false},
		{"empty", amount(10), "", false},
		{"infinite", amount(10), "Inf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, amountMatches(tt.stored, tt.money))
		})
	}
}
