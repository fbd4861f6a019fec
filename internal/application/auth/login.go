package auth

import (
	"context"

	"github.com/baechuer/tokenauth/internal/domain"
)

// AuthenticateByCredentials looks up the account by normalized email and
// checks the password.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
func (s *Service) AuthenticateByCredentials(ctx context.Context, email, password string) (*domain.UserAccount, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials()
	}

	acct, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return nil, domain.ErrInvalidCredentials()
		}
		return nil, persistenceErr(err)
	}

	if !acct.CheckPassword(ctx, s.hasher, password) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidCredentials()
	}
	return acct, nil
}

// Login authenticates by credentials and issues a new auth token.
// The password policy is checked first so short passwords never reach bcrypt.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := domain.ValidatePassword(password); err != nil {
		return LoginResult{}, err
	}

	acct, err := s.AuthenticateByCredentials(ctx, email, password)
	if err != nil {
		s.audit("account.login", map[string]string{
			"result":     "error",
			"error_code": domainCode(err),
		})
		return LoginResult{}, err
	}

	tok, err := s.IssueToken(ctx, acct)
	if err != nil {
		return LoginResult{}, err
	}

	s.audit("account.login", map[string]string{
		"user_id": acct.ID,
		"result":  "success",
	})
	return LoginResult{Account: acct, Token: tok}, nil
}
