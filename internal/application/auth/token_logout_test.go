package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/baechuer/tokenauth/internal/domain"
)

func TestAuthenticateByToken_ValidActiveToken_ReturnsOwner(t *testing.T) {
	t.Parallel()

	d := newSvcForTest(t)
	seedAccount(t, d.users, "u1", "e@x.com", "secret1")

	res, err := d.svc.Login(context.Background(), "e@x.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	acct, err := d.svc.AuthenticateByToken(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if acct.ID != "u1" {
		t.Fatalf("expected u1, got %s", acct.ID)
	}
}

func TestAuthenticateByToken_Rejects(t *testing.T) {
	t.Parallel()

	d := newSvcForTest(t)
	seedAccount(t, d.users, "u1", "e@x.com", "secret1")

	cases := map[string]string{
		"empty":          "",
		"blank":          "   ",
		"garbage":        "not-a-token",
		"foreign issuer": "xxx:u1:auth:1",
		"wrong scope":    "sig:u1:reset:1",
		"empty subject":  "sig::auth:1",
		"unknown user":   "sig:ghost:auth:1",
		"never issued":   "sig:u1:auth:999",
	}

	for name, tok := range cases {
		_, err := d.svc.AuthenticateByToken(context.Background(), tok)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		requireErrCode(t, err, "invalid_credentials")
	}
}

func TestAuthenticateByToken_StoreDown_IsNotAuthFailure(t *testing.T) {
	t.Parallel()

	d := newSvcForTest(t)
	d.users.findErr = errors.New("dial tcp: refused")

	_, err := d.svc.AuthenticateByToken(context.Background(), "sig:u1:auth:1")
	requireErrCode(t, err, "db_unavailable")
}

func TestLogout_RevokesToken_EvenThoughSignatureStillVerifies(t *testing.T) {
	t.Parallel()

	d := newSvcForTest(t)
	seedAccount(t, d.users, "u1", "e@x.com", "secret1")

	res, err := d.svc.Login(context.Background(), "e@x.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	acct, err := d.svc.AuthenticateByToken(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}

	if err := d.svc.Logout(context.Background(), acct, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := d.codec.Verify(res.Token); err != nil {
		t.Fatalf("signature should still verify, got %v", err)
	}
	_, err = d.svc.AuthenticateByToken(context.Background(), res.Token)
	requireErrCode(t, err, "invalid_credentials")

	if acct.HasToken(domain.ScopeAuth, res.Token) {
		t.Fatalf("in-memory account still holds the token")
	}
}

func TestLogout_OnlyRevokesThatSession(t *testing.T) {
	t.Parallel()

	d := newSvcForTest(t)
	seedAccount(t, d.users, "u1", "e@x.com", "secret1")

	r1, _ := d.svc.Login(context.Background(), "e@x.com", "secret1")
	r2, _ := d.svc.Login(context.Background(), "e@x.com", "secret1")

	if err := d.svc.Logout(context.Background(), r1.Account, r1.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := d.svc.AuthenticateByToken(context.Background(), r2.Token); err != nil {
		t.Fatalf("second session must survive, got %v", err)
	}
}

func TestLogout_UnknownOrEmptyToken_IsNoop(t *testing.T) {
	t.Parallel()

	d := newSvcForTest(t)
	acct := seedAccount(t, d.users, "u1", "e@x.com", "secret1")

	if err := d.svc.Logout(context.Background(), acct, ""); err != nil {
		t.Fatalf("empty token: %v", err)
	}
	if err := d.svc.Logout(context.Background(), acct, "sig:u1:auth:42"); err != nil {
		t.Fatalf("unknown token: %v", err)
	}
}

func TestLogout_NilAccount(t *testing.T) {
	t.Parallel()

	d := newSvcForTest(t)
	err := d.svc.Logout(context.Background(), nil, "x")
	requireErrCode(t, err, "invalid_credentials")
}

func TestLogout_StoreFailure_RestoresInMemoryTokens(t *testing.T) {
	t.Parallel()

	d := newSvcForTest(t)
	seedAccount(t, d.users, "u1", "e@x.com", "secret1")

	res, err := d.svc.Login(context.Background(), "e@x.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	d.users.removeTokenErr = errors.New("timeout")

	err = d.svc.Logout(context.Background(), res.Account, res.Token)
	requireErrCode(t, err, "db_unavailable")

	if !res.Account.HasToken(domain.ScopeAuth, res.Token) {
		t.Fatalf("token must be restored after failed revoke")
	}
}

func TestLogout_CanceledContext(t *testing.T) {
	t.Parallel()

	d := newSvcForTest(t)
	acct := seedAccount(t, d.users, "u1", "e@x.com", "secret1")

	// hold the account lock so Logout has to wait
	release, err := d.svc.locks.acquire(context.Background(), "u1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = d.svc.Logout(ctx, acct, "sig:u1:auth:1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
