package middleware

import (
	"context"

	"github.com/baechuer/tokenauth/internal/domain"
)

type ctxKey string

const (
	ctxAccount ctxKey = "account"
	ctxToken   ctxKey = "token"
)

// WithAccount stores the authenticated account and the token it presented.
func WithAccount(ctx context.Context, acct *domain.UserAccount, token string) context.Context {
	ctx = context.WithValue(ctx, ctxAccount, acct)
	ctx = context.WithValue(ctx, ctxToken, token)
	return ctx
}

func AccountFromContext(ctx context.Context) (*domain.UserAccount, bool) {
	v, ok := ctx.Value(ctxAccount).(*domain.UserAccount)
	return v, ok && v != nil
}

func TokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxToken).(string)
	return v, ok && v != ""
}
