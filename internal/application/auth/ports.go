package auth

import (
	"context"
	"time"

	"github.com/baechuer/tokenauth/internal/domain"
)

/*
UserStore
---------
Persistence port for accounts.
Only describes WHAT the auth service needs, not HOW it's stored.
Lookups return domain.ErrUserNotFound() when nothing matches.
*/
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	FindByID(ctx context.Context, id string) (*domain.UserAccount, error)
	// FindByActiveToken matches on id AND (scope, token) being in the token set.
	FindByActiveToken(ctx context.Context, id, token, scope string) (*domain.UserAccount, error)

	Insert(ctx context.Context, a *domain.UserAccount) (string, error)
	// Save replaces email, password hash and the whole token set.
	Save(ctx context.Context, a *domain.UserAccount) error
	Delete(ctx context.Context, id string) error

	// Atomic set operations on the token set.
	AddToken(ctx context.Context, id string, t domain.AccountToken) error
	RemoveToken(ctx context.Context, id, token string) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher = domain.PasswordHasher

/*
TokenCodec
----------
Signs and verifies auth tokens (JWT).
Used by service + auth middleware.
*/
type TokenCodec interface {
	Sign(claims domain.TokenClaims) (string, error)
	Verify(token string) (domain.TokenClaims, error)
}

/*
EventPublisher
--------------
Publishes account lifecycle events to RabbitMQ.
*/
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, evt AccountEvent) error
	PublishAccountDeleted(ctx context.Context, evt AccountEvent) error
}

type AccountEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}
