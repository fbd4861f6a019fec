package auth

import (
	"context"
	"strings"

	"github.com/baechuer/tokenauth/internal/domain"
)

// AuthenticateByToken resolves the account owning token. A valid signature is
// not enough: the token must still be in the account's stored token set, which
// is what makes logout effective.
func (s *Service) AuthenticateByToken(ctx context.Context, token string) (*domain.UserAccount, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidCredentials()
	}

	claims, err := s.codec.Verify(token)
	if err != nil {
		// signature, format and expiry failures all look the same to callers
		return nil, domain.ErrInvalidCredentials()
	}
	if claims.SubjectID == "" || claims.Scope != domain.ScopeAuth {
		return nil, domain.ErrInvalidCredentials()
	}

	acct, err := s.users.FindByActiveToken(ctx, claims.SubjectID, token, domain.ScopeAuth)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return nil, domain.ErrInvalidCredentials()
		}
		return nil, persistenceErr(err)
	}
	return acct, nil
}
