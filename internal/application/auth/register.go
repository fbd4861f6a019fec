package auth

import (
	"context"

	"github.com/baechuer/tokenauth/internal/domain"
)

// Register creates an account, persists it and issues its first auth token.
// Duplicate emails are detected by the store on the normalized address.
func (s *Service) Register(ctx context.Context, email, password string) (RegisterResult, error) {
	acct, err := domain.NewUserAccount(ctx, s.hasher, email, password)
	if err != nil {
		return RegisterResult{}, err
	}

	if _, err := s.users.Insert(ctx, acct); err != nil {
		return RegisterResult{}, persistenceErr(err)
	}

	tok, err := s.IssueToken(ctx, acct)
	if err != nil {
		return RegisterResult{}, err
	}

	s.publish(ctx, "account.registered", acct, s.publishRegistered)
	s.audit("account.register", map[string]string{
		"user_id": acct.ID,
		"result":  "success",
	})

	return RegisterResult{Account: acct, Token: tok}, nil
}

func (s *Service) publishRegistered(ctx context.Context, evt AccountEvent) error {
	return s.pub.PublishAccountRegistered(ctx, evt)
}

func (s *Service) publishDeleted(ctx context.Context, evt AccountEvent) error {
	return s.pub.PublishAccountDeleted(ctx, evt)
}

// publish is best effort: a broker outage never fails the request, it only
// leaves an audit line behind. The change is already committed, so the
// caller going away does not abort the publish; publishWait caps the added
// latency instead.
func (s *Service) publish(ctx context.Context, action string, acct *domain.UserAccount, fn func(context.Context, AccountEvent) error) {
	if s.pub == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishWait)
	defer cancel()

	evt := AccountEvent{UserID: acct.ID, Email: acct.Email, OccurredAt: s.now().UTC()}
	if err := fn(pctx, evt); err != nil {
		s.audit(action+".publish", map[string]string{
			"user_id":    acct.ID,
			"result":     "error",
			"error_code": domainCode(err),
		})
	}
}
