// Package token encodes and decodes HS256 access tokens.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"portfolio-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// accessClaims is the JWT payload: sub is the decimal user id.
type accessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access tokens with a single process-wide
// secret. It holds no mutable state and is safe for concurrent use.
// Key rotation is not supported: changing the secret invalidates every
// outstanding token.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithLogger sets the logger that records why a token was rejected.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Codec) { c.logger = logger }
}

// NewCodec returns a Codec. An empty issuer disables the iss check.
func NewCodec(secret, issuer string, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode signs a token for userID that expires ttl from now.
func (c *Codec) Encode(userID int64, role string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	issuedAt := c.now()
	expiresAt := issuedAt.Add(ttl)
	claims := accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Decode verifies tokenString and returns its claims. Every failure
// returns models.ErrTokenInvalid; the reason is only logged.
func (c *Codec) Decode(tokenString string) (*models.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, opts...)
	if err != nil {
		c.logger.Debug("Access token rejected", zap.String("reason", rejectReason(err)))
		return nil, models.ErrTokenInvalid
	}
	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		c.logger.Debug("Access token rejected", zap.String("reason", "bad subject"))
		return nil, models.ErrTokenInvalid
	}

	out := &models.Claims{
		UserID: userID,
		Role:   claims.Role,
		ID:     claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	default:
		return "invalid claims"
	}
}
