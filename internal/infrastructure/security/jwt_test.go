package security

import (
	"strings"
	"testing"
	"time"

	"github.com/baechuer/tokenauth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

func authClaims(id string) domain.TokenClaims {
	return domain.TokenClaims{SubjectID: id, Scope: domain.ScopeAuth}
}

func TestJWTCodec_SignAndVerify_Success(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec("secret", "tokenauth", 2*time.Minute)
	tok, err := c.Sign(authClaims("u1"))
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected jwt with 3 segments, got %q", tok)
	}

	claims, err := c.Verify(tok)
	if err != nil {
		t.Fatalf("verify err: %v", err)
	}
	if claims.SubjectID != "u1" || claims.Scope != domain.ScopeAuth {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt.IsZero() {
		t.Fatalf("expected exp to be set")
	}
}

func TestJWTCodec_SameClaimsSameInstant_DistinctTokens(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec("secret", "tokenauth", time.Minute)
	fixed := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return fixed }

	a, _ := c.Sign(authClaims("u1"))
	b, _ := c.Sign(authClaims("u1"))
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
}

func TestJWTCodec_ZeroTTL_NoExpiry(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec("secret", "tokenauth", 0)
	tok, err := c.Sign(authClaims("u1"))
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(10 * 365 * 24 * time.Hour) }
	claims, err := c.Verify(tok)
	if err != nil {
		t.Fatalf("verify err: %v", err)
	}
	if !claims.ExpiresAt.IsZero() {
		t.Fatalf("expected no exp, got %v", claims.ExpiresAt)
	}
}

func TestJWTCodec_Verify_Expired_ReturnsTokenExpired(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec("secret", "tokenauth", time.Minute)
	tok, err := c.Sign(authClaims("u1"))
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, verr := c.Verify(tok)
	if !domain.Is(verr, "token_expired") {
		t.Fatalf("expected token_expired, got %v", verr)
	}
}

func TestJWTCodec_ExplicitExpiry_Wins(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec("secret", "tokenauth", time.Hour)
	exp := time.Now().Add(-time.Second)
	tok, err := c.Sign(domain.TokenClaims{SubjectID: "u1", Scope: domain.ScopeAuth, ExpiresAt: exp})
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	_, verr := c.Verify(tok)
	if !domain.Is(verr, "token_expired") {
		t.Fatalf("expected token_expired, got %v", verr)
	}
}

func TestJWTCodec_Verify_WrongSecret_ReturnsTokenInvalid(t *testing.T) {
	t.Parallel()

	c1 := NewJWTCodec("secret1", "tokenauth", time.Minute)
	c2 := NewJWTCodec("secret2", "tokenauth", time.Minute)

	tok, err := c1.Sign(authClaims("u1"))
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	_, verr := c2.Verify(tok)
	if !domain.Is(verr, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", verr)
	}
}

func TestJWTCodec_Verify_WrongIssuer_ReturnsTokenInvalid(t *testing.T) {
	t.Parallel()

	c1 := NewJWTCodec("secret", "someone-else", time.Minute)
	c2 := NewJWTCodec("secret", "tokenauth", time.Minute)

	tok, _ := c1.Sign(authClaims("u1"))
	_, verr := c2.Verify(tok)
	if !domain.Is(verr, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", verr)
	}
}

func TestJWTCodec_Verify_AlgConfusion_Rejected(t *testing.T) {
	t.Parallel()

	claims := jwt.MapClaims{
		"access": "auth",
		"iss":    "tokenauth",
		"sub":    "u1",
		"exp":    time.Now().Add(time.Minute).Unix(),
		"iat":    time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, claims)

	unsigned, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected signing err: %v", err)
	}

	c := NewJWTCodec("secret", "tokenauth", time.Minute)
	_, verr := c.Verify(unsigned)
	if !domain.Is(verr, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", verr)
	}
}

func TestJWTCodec_Verify_Garbage_ReturnsTokenMalformed(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec("secret", "tokenauth", time.Minute)

	for _, tok := range []string{"not.a.jwt", "abc", ""} {
		_, err := c.Verify(tok)
		if !domain.Is(err, "token_malformed") {
			t.Fatalf("%q: expected token_malformed, got %v", tok, err)
		}
	}
}
