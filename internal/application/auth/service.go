package auth

import (
	"context"
	"errors"
	"time"

	"github.com/baechuer/tokenauth/internal/domain"
)

// defaultPublishWait bounds how long a request waits on the event broker.
const defaultPublishWait = 500 * time.Millisecond

type Service struct {
	users  UserStore
	hasher PasswordHasher
	codec  TokenCodec
	pub    EventPublisher // optional

	publishWait time.Duration

	locks *accountLocks
	audit func(action string, fields map[string]string)
	now   func() time.Time
}

func NewService(users UserStore, hasher PasswordHasher, codec TokenCodec, pub EventPublisher) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		codec:  codec,
		pub:    pub,
		locks:  newAccountLocks(),

		publishWait: defaultPublishWait,
		audit:  func(string, map[string]string) {},
		now:    time.Now,
	}
}

// RegisterResult is returned by Register: the new account and its first token.
type RegisterResult struct {
	Account *domain.UserAccount
	Token   string
}

// LoginResult is returned by Login.
type LoginResult struct {
	Account *domain.UserAccount
	Token   string
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// IssueToken signs a new auth token for acct and persists it. The token is
// returned only once the store confirmed the write; on failure the in-memory
// append is rolled back.
//
// acct carries the password hash the caller authenticated against. If the
// stored hash changed since then (a concurrent password change), no token is
// issued.
func (s *Service) IssueToken(ctx context.Context, acct *domain.UserAccount) (string, error) {
	if acct == nil || acct.ID == "" {
		return "", domain.ErrInvalidCredentials()
	}

	release, err := s.locks.acquire(ctx, acct.ID)
	if err != nil {
		return "", err
	}
	defer release()

	cur, err := s.reload(ctx, acct.ID)
	if err != nil {
		return "", err
	}
	if cur.PasswordHash != acct.PasswordHash {
		return "", domain.ErrInvalidCredentials()
	}

	tok, err := acct.GenerateAuthToken(s.codec)
	if err != nil {
		return "", err
	}

	if err := s.users.AddToken(ctx, acct.ID, domain.AccountToken{Scope: domain.ScopeAuth, Token: tok}); err != nil {
		acct.RemoveToken(tok)
		return "", persistenceErr(err)
	}
	return tok, nil
}

// persistenceErr keeps domain errors and context errors as they are and
// classifies anything else coming out of a store as db_unavailable.
func persistenceErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.ErrDBUnavailable(err)
}

func domainCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "unknown"
}
