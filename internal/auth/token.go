package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid login token")

// TokenClaims is the decoded payload of a login token.
type TokenClaims struct {
	EPersonID     string   `mapstructure:"eid"`
	SpecialGroups []string `mapstructure:"sg"`
	Method        string   `mapstructure:"authm"`
	IssuedAt      int64    `mapstructure:"iat"`
	ExpiresAt     int64    `mapstructure:"exp"`
}

// Issued returns the issue time.
func (c *TokenClaims) Issued() time.Time {
	return time.Unix(c.IssuedAt, 0)
}

// SaltFunc returns the current session salt of an EPerson.
type SaltFunc func(ctx context.Context, epersonID string) (string, error)

// TokenService mints and verifies HS256 login tokens. The signing key is the
// server secret followed by the EPerson's session salt.
type TokenService struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(secret string, expiration time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), expiration: expiration, now: time.Now}
}

// WithClock overrides the time source (tests).
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Mint signs a token for the EPerson.
func (s *TokenService) Mint(epersonID, salt, method string, specialGroups []string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"eid":   epersonID,
		"authm": method,
		"iat":   now.Unix(),
		"exp":   now.Add(s.expiration).Unix(),
	}
	if len(specialGroups) > 0 {
		claims["sg"] = specialGroups
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key(salt))
	if err != nil {
		return "", fmt.Errorf("sign login token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and decodes its claims. The salt is looked up from the
// unverified "eid" claim before the signature is checked.
func (s *TokenService) Parse(ctx context.Context, raw string, salts SaltFunc) (*TokenClaims, error) {
	keyFunc := func(token *jwt.Token) (any, error) {
		mc, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
		}
		eid, _ := mc["eid"].(string)
		if eid == "" {
			return nil, fmt.Errorf("missing eid claim")
		}
		salt, err := salts(ctx, eid)
		if err != nil {
			return nil, err
		}
		return s.key(salt), nil
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.Parse(raw, keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims TokenClaims
	if err := mapstructure.Decode(map[string]any(token.Claims.(jwt.MapClaims)), &claims); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}
	return &claims, nil
}

func (s *TokenService) key(salt string) []byte {
	key := make([]byte, 0, len(s.secret)+len(salt))
	key = append(key, s.secret...)
	return append(key, salt...)
}
