package epay

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrMalformedTradeNo = errors.New("malformed merchant trade number")

var tradeNoPattern = regexp.MustCompile(`^ORDER_(\d+)_(\d+)$`)

// FormatTradeNo builds the merchant trade number sent to the gateway for an
// order. ParseTradeNo recovers the order id from it.
func FormatTradeNo(orderID uint, at time.Time) string {
	return fmt.Sprintf("ORDER_%d_%d", orderID, at.UnixMilli())
}

func ParseTradeNo(s string) (uint, error) {
	m := tradeNoPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrMalformedTradeNo
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || id == 0 {
		return 0, ErrMalformedTradeNo
	}
	return uint(id), nil
}
