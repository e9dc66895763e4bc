package token

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedService(secret string, at time.Time) *Service {
	s := NewService(secret, 0)
	s.now = func() time.Time { return at }
	return s
}

func TestService_RoundTrip(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 0)
	svc := fixedService("s1", issuedAt)

	tok, err := svc.Issue(42, "a@b.com")
	require.NoError(t, err)
	assert.Len(t, strings.Split(tok, "."), 3)

	p := svc.Verify(tok)
	require.NotNil(t, p)
	assert.Equal(t, uint(42), p.SubjectID)
	assert.Equal(t, "a@b.com", p.Email)
	assert.Equal(t, issuedAt.Unix(), p.IssuedAt)
	assert.Equal(t, issuedAt.Unix()+604800, p.ExpiresAt)
}

func TestService_WrongSecret(t *testing.T) {
	now := time.Now()
	tok, err := fixedService("s1", now).Issue(42, "a@b.com")
	require.NoError(t, err)

	assert.Nil(t, fixedService("s2", now).Verify(tok))

	p := fixedService("s1", now.Add(6*24*time.Hour)).Verify(tok)
	require.NotNil(t, p)
	assert.Equal(t, uint(42), p.SubjectID)
	assert.Equal(t, "a@b.com", p.Email)
}

func TestService_Expiry(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 0)
	tok, err := fixedService("secret", issuedAt).Issue(7, "x@y.z")
	require.NoError(t, err)

	assert.NotNil(t, fixedService("secret", issuedAt.Add(DefaultTTL-time.Second)).Verify(tok))
	assert.Nil(t, fixedService("secret", issuedAt.Add(DefaultTTL)).Verify(tok))
	assert.Nil(t, fixedService("secret", issuedAt.Add(30*24*time.Hour)).Verify(tok))
}

func TestService_TamperAnyCharacter(t *testing.T) {
	svc := fixedService("secret", time.Unix(1_700_000_000, 0))
	tok, err := svc.Issue(12345, "tamper@example.com")
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		if tok[i] == '.' {
			continue
		}
		replacement := byte('A')
		if tok[i] == 'A' {
			replacement = 'B'
		}
		altered := tok[:i] + string(replacement) + tok[i+1:]
		assert.Nil(t, svc.Verify(altered), "altered position %d", i)
	}
}

func TestService_Malformed(t *testing.T) {
	svc := fixedService("secret", time.Now())
	tok, err := svc.Issue(1, "m@example.com")
	require.NoError(t, err)

	for _, in := range []string{
		"",
		"abc",
		"a.b",
		tok + ".extra",
		strings.Replace(tok, ".", "", 1),
		"!!!.@@@.###",
	} {
		assert.Nil(t, svc.Verify(in), "input %q", in)
	}
}

func TestService_InvalidPayloadJSON(t *testing.T) {
	secret := []byte("secret")
	signingString := encodedHeader + "." + EncodeSegment([]byte("not json"))
	sig, err := signHS256(signingString, secret)
	require.NoError(t, err)

	svc := fixedService("secret", time.Now())
	assert.Nil(t, svc.Verify(signingString+"."+sig))
}

func TestService_IgnoresHeaderAlgorithm(t *testing.T) {
	secret := []byte("secret")
	header := EncodeSegment([]byte(`{"alg":"none","typ":"JWT"}`))
	body, err := json.Marshal(Payload{SubjectID: 9, Email: "n@example.com"})
	require.NoError(t, err)
	signingString := header + "." + EncodeSegment(body)

	svc := fixedService("secret", time.Now())
	assert.Nil(t, svc.Verify(signingString+"."))

	sig, err := signHS256(signingString, secret)
	require.NoError(t, err)
	p := svc.Verify(signingString + "." + sig)
	require.NotNil(t, p, "signature is always checked as HS256")
	assert.Equal(t, uint(9), p.SubjectID)
}

func TestIssueVerify_FreeFunctions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok, err := Issue(42, "a@b.com", "s1", now)
	require.NoError(t, err)

	assert.Nil(t, Verify(tok, "s2", now))
	p := Verify(tok, "s1", now.Add(time.Hour))
	require.NotNil(t, p)
	assert.Equal(t, uint(42), p.SubjectID)
}

func signHS256(signingString string, secret []byte) (string, error) {
	raw, err := jwt.SigningMethodHS256.Sign(signingString, secret)
	if err != nil {
		return "", err
	}
	return EncodeSegment(raw), nil
}
