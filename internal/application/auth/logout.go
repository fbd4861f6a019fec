package auth

import (
	"context"

	"github.com/baechuer/tokenauth/internal/domain"
)

// Logout revokes a single token of acct (single session logout). Revoking a
// token that is not present is a no-op.
func (s *Service) Logout(ctx context.Context, acct *domain.UserAccount, token string) error {
	if acct == nil || acct.ID == "" {
		return domain.ErrInvalidCredentials()
	}
	if token == "" {
		return nil
	}

	release, err := s.locks.acquire(ctx, acct.ID)
	if err != nil {
		return err
	}
	defer release()

	before := acct.Clone().Tokens
	acct.RemoveToken(token)

	if err := s.users.RemoveToken(ctx, acct.ID, token); err != nil {
		acct.Tokens = before
		return persistenceErr(err)
	}

	s.audit("account.logout", map[string]string{
		"user_id": acct.ID,
		"result":  "success",
	})
	return nil
}
