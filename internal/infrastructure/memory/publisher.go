package memory

import (
	"context"

	"github.com/baechuer/tokenauth/internal/application/auth"
	"github.com/baechuer/tokenauth/internal/logger"
)

// NoopPublisher only logs events; used when no broker is configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishAccountRegistered(ctx context.Context, evt auth.AccountEvent) error {
	logger.WithCtx(ctx).Info().
		Str("user_id", evt.UserID).
		Msg("[noop-pub] account registered")
	return nil
}

func (p *NoopPublisher) PublishAccountDeleted(ctx context.Context, evt auth.AccountEvent) error {
	logger.WithCtx(ctx).Info().
		Str("user_id", evt.UserID).
		Msg("[noop-pub] account deleted")
	return nil
}
