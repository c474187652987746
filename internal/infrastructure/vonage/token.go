package vonage

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const authHeader = "X-OPENTOK-AUTH"

// projectClaims are the claims of a project-scoped REST token.
type projectClaims struct {
	IssuerType string `json:"ist"`
	jwt.RegisteredClaims
}

// TokenSource mints short-lived project tokens signed with the API secret.
type TokenSource struct {
	apiKey    string
	apiSecret []byte
	ttl       time.Duration
	clock     clockwork.Clock
}

func NewTokenSource(apiKey, apiSecret string, ttl time.Duration, clock clockwork.Clock) *TokenSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenSource{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		ttl:       ttl,
		clock:     clock,
	}
}

func (s *TokenSource) Token() (string, error) {
	now := s.clock.Now()
	claims := projectClaims{
		IssuerType: "project",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.apiKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.apiSecret)
	if err != nil {
		return "", fmt.Errorf("sign provider token: %w", err)
	}
	return signed, nil
}
