package epay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeNo(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	assert.Equal(t, "ORDER_5_1700000000123", FormatTradeNo(5, at))
}

func TestParseTradeNo_RoundTrip(t *testing.T) {
	for _, id := range []uint{1, 42, 987654321} {
		got, err := ParseTradeNo(FormatTradeNo(id, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestParseTradeNo_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"ORDER_5",
		"ORDER__123",
		"ORDER_abc_123",
		"order_5_123",
		"XORDER_5_123",
		"ORDER_5_123_9",
		"ORDER_5_123\n",
		"ORDER_-5_123",
		"ORDER_0_123",
		"ORDER_99999999999999999999999_1",
	} {
		_, err := ParseTradeNo(in)
		assert.ErrorIs(t, err, ErrMalformedTradeNo, "input %q", in)
	}
}
