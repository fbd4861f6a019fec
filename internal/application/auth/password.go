package auth

import (
	"context"

	"github.com/baechuer/tokenauth/internal/domain"
)

// ChangePassword verifies the current password, stores a new hash and revokes
// every other session. keepToken (usually the token of the calling request)
// stays active; pass "" to revoke all.
//
// acct may be a stale snapshot, so the stored account is reloaded under the
// account lock and all checks and writes run against that copy. acct is only
// updated once the store accepted the change.
func (s *Service) ChangePassword(ctx context.Context, acct *domain.UserAccount, keepToken, oldPassword, newPassword string) error {
	if acct == nil || acct.ID == "" {
		return domain.ErrInvalidCredentials()
	}
	if oldPassword == "" {
		return domain.ErrMissingField("old_password")
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	release, err := s.locks.acquire(ctx, acct.ID)
	if err != nil {
		return err
	}
	defer release()

	cur, err := s.reload(ctx, acct.ID)
	if err != nil {
		return err
	}
	// a session revoked since the request was authenticated cannot act
	if keepToken != "" && !cur.HasToken(domain.ScopeAuth, keepToken) {
		return domain.ErrInvalidCredentials()
	}

	if !cur.CheckPassword(ctx, s.hasher, oldPassword) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return domain.ErrInvalidCredentials()
	}

	if err := cur.SetPassword(ctx, s.hasher, newPassword); err != nil {
		return err
	}
	kept := cur.Tokens[:0]
	for _, t := range cur.Tokens {
		if keepToken != "" && t.Token == keepToken {
			kept = append(kept, t)
		}
	}
	cur.Tokens = kept

	if err := s.users.Save(ctx, cur); err != nil {
		return persistenceErr(err)
	}

	acct.PasswordHash = cur.PasswordHash
	acct.Tokens = cur.Clone().Tokens

	s.audit("account.password_change", map[string]string{
		"user_id": acct.ID,
		"result":  "success",
	})
	return nil
}

// reload fetches the stored account. A vanished account is an auth failure,
// not a lookup error.
func (s *Service) reload(ctx context.Context, id string) (*domain.UserAccount, error) {
	cur, err := s.users.FindByID(ctx, id)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return nil, domain.ErrInvalidCredentials()
		}
		return nil, persistenceErr(err)
	}
	return cur, nil
}
