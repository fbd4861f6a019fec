package auth

import (
	"context"

	"github.com/baechuer/tokenauth/internal/domain"
)

func (s *Service) Me(acct *domain.UserAccount) domain.AccountView {
	return acct.RedactedView()
}

// DeleteAccount removes the account and, with it, every token it held.
func (s *Service) DeleteAccount(ctx context.Context, acct *domain.UserAccount) error {
	if acct == nil || acct.ID == "" {
		return domain.ErrInvalidCredentials()
	}

	release, err := s.locks.acquire(ctx, acct.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.users.Delete(ctx, acct.ID); err != nil {
		return persistenceErr(err)
	}
	acct.Tokens = nil

	s.publish(ctx, "account.delete", acct, s.publishDeleted)
	s.audit("account.delete", map[string]string{
		"user_id": acct.ID,
		"result":  "success",
	})
	return nil
}
