package epay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	MethodAlipay = "alipay"
	MethodWxpay  = "wxpay"
	MethodQQpay  = "qqpay"

	TradeSuccess = "TRADE_SUCCESS"
)

var ErrNotConfigured = errors.New("epay gateway is not configured")

// ValidMethod reports whether m is a payment type the gateway accepts.
func ValidMethod(m string) bool {
	switch m {
	case MethodAlipay, MethodWxpay, MethodQQpay:
		return true
	}
	return false
}

type Config struct {
	PID       string
	Key       string
	APIURL    string
	NotifyURL string
	ReturnURL string
	SiteName  string
}

type CreateOrderParams struct {
	OutTradeNo string
	Name       string
	Money      string
	Type       string
	Device     string
}

type OrderResponse struct {
	Code json.Number `json:"code"`
	Msg  string      `json:"msg"`
	Data struct {
		PayURL string `json:"payurl"`
		QRCode string `json:"qrcode"`
	} `json:"data"`
}

func (r *OrderResponse) OK() bool {
	return r.Code.String() == "1"
}

type QueryResponse struct {
	Code       json.Number `json:"code"`
	Msg        string      `json:"msg"`
	TradeNo    string      `json:"trade_no"`
	OutTradeNo string      `json:"out_trade_no"`
	Type       string      `json:"type"`
	Money      json.Number `json:"money"`
	Status     json.Number `json:"status"`
}

// Paid reports whether the gateway has settled the order.
func (r *QueryResponse) Paid() bool {
	return r.Code.String() == "1" && r.Status.String() == "1"
}

// Client talks to an epay-compatible aggregator over signed form posts.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Key returns the shared secret used to verify notifications.
func (c *Client) Key() string {
	return c.cfg.Key
}

// CreatePayment registers an order with the gateway and returns its pay URL.
func (c *Client) CreatePayment(ctx context.Context, p CreateOrderParams) (*OrderResponse, error) {
	params := map[string]string{
		"pid":          c.cfg.PID,
		"type":         p.Type,
		"out_trade_no": p.OutTradeNo,
		"notify_url":   c.cfg.NotifyURL,
		"return_url":   c.cfg.ReturnURL,
		"name":         p.Name,
		"money":        p.Money,
		"sitename":     c.cfg.SiteName,
	}
	if p.Device != "" {
		params["device"] = p.Device
	}

	var resp OrderResponse
	if err := c.post(ctx, "/submit.php", params, &resp); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &resp, nil
}

// QueryOrder asks the gateway for the state of a merchant trade number.
func (c *Client) QueryOrder(ctx context.Context, outTradeNo string) (*QueryResponse, error) {
	params := map[string]string{
		"pid":          c.cfg.PID,
		"out_trade_no": outTradeNo,
	}

	var resp QueryResponse
	if err := c.post(ctx, "/api.php", params, &resp); err != nil {
		return nil, fmt.Errorf("query order %s: %w", outTradeNo, err)
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, params map[string]string, out interface{}) error {
	if c.cfg.APIURL == "" || c.cfg.Key == "" {
		return ErrNotConfigured
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("sign", ComputeChecksum(params, c.cfg.Key))
	form.Set("sign_type", "MD5")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
