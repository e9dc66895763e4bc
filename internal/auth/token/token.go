package token

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inquiry-backend/pkg/metrics"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of every issued token.
const DefaultTTL = 7 * 24 * time.Hour

// The header is constant. Verification never reads it back.
var encodedHeader = EncodeSegment([]byte(`{"alg":"HS256","typ":"JWT"}`))

// Payload is the claim set carried by a session token.
type Payload struct {
	SubjectID uint   `json:"subjectId"`
	Email     string `json:"email"`
	IssuedAt  int64  `json:"iat,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

// Verifier checks a token and returns its payload, or nil when it is not valid.
type Verifier interface {
	Verify(token string) *Payload
}

// Service issues and verifies HS256 session tokens with a single secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a token service. A non-positive ttl means DefaultTTL.
func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Service) Issue(subjectID uint, email string) (string, error) {
	now := s.now()
	tok, err := sign(Payload{
		SubjectID: subjectID,
		Email:     email,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}, s.secret)
	if err != nil {
		return "", err
	}
	metrics.TokensIssued.Inc()
	return tok, nil
}

func (s *Service) Verify(token string) *Payload {
	return verify(token, s.secret, s.now())
}

// Issue signs a token for subjectID valid for DefaultTTL from now.
func Issue(subjectID uint, email, secret string, now time.Time) (string, error) {
	return sign(Payload{
		SubjectID: subjectID,
		Email:     email,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(DefaultTTL).Unix(),
	}, []byte(secret))
}

// Verify checks token against secret at the instant now.
func Verify(token, secret string, now time.Time) *Payload {
	return verify(token, []byte(secret), now)
}

func sign(p Payload, secret []byte) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	signingString := encodedHeader + "." + EncodeSegment(body)

	sig, err := jwt.SigningMethodHS256.Sign(signingString, secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signingString + "." + EncodeSegment(sig), nil
}

func verify(token string, secret []byte, now time.Time) *Payload {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}

	sig, err := DecodeSegment(parts[2])
	if err != nil {
		return nil
	}
	// HS256 is fixed here; the alg field of the header is ignored.
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, secret); err != nil {
		return nil
	}

	body, err := DecodeSegment(parts[1])
	if err != nil {
		return nil
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil
	}

	if p.ExpiresAt != 0 && now.Unix() >= p.ExpiresAt {
		return nil
	}
	return &p
}
