package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/baechuer/tokenauth/internal/domain"
)

// JWTCodec signs and verifies HS256 session tokens. A ttl of zero issues
// tokens without an exp claim.
type JWTCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTCodec(secret, issuer string, ttl time.Duration) *JWTCodec {
	return &JWTCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

type sessionClaims struct {
	Access string `json:"access"`
	jwt.RegisteredClaims
}

func (c *JWTCodec) Sign(claims domain.TokenClaims) (string, error) {
	now := c.now()
	rc := jwt.RegisteredClaims{
		ID:       uuid.NewString(), // two logins in the same second must differ
		Issuer:   c.issuer,
		Subject:  claims.SubjectID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	switch {
	case !claims.ExpiresAt.IsZero():
		rc.ExpiresAt = jwt.NewNumericDate(claims.ExpiresAt)
	case c.ttl > 0:
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Access:           claims.Scope,
		RegisteredClaims: rc,
	})
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

func (c *JWTCodec) Verify(token string) (domain.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return c.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.TokenClaims{}, domain.ErrTokenExpired()
		case errors.Is(err, jwt.ErrTokenMalformed):
			return domain.TokenClaims{}, domain.ErrTokenMalformed(err)
		default:
			return domain.TokenClaims{}, domain.ErrTokenInvalid()
		}
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return domain.TokenClaims{}, domain.ErrTokenInvalid()
	}

	exp := time.Time{}
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return domain.TokenClaims{
		SubjectID: claims.Subject,
		Scope:     claims.Access,
		ExpiresAt: exp,
	}, nil
}
