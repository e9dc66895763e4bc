package epay

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// ComputeChecksum returns the gateway "sign" value for params: non-empty
// parameters other than sign and sign_type, sorted by key, joined as k=v
// pairs with '&', followed directly by key, hashed with MD5.
func ComputeChecksum(params map[string]string, key string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || k == "sign_type" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	b.WriteString(key)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether params carries a sign matching its content.
// A missing sign never verifies.
func VerifyChecksum(params map[string]string, key string) bool {
	sign, ok := params["sign"]
	if !ok || sign == "" {
		return false
	}
	expected := ComputeChecksum(params, key)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sign)) == 1
}
