package memory

import (
	"context"
	"sync"

	"github.com/baechuer/tokenauth/internal/domain"
)

// UserStore keeps accounts in process memory. Every read hands out a copy so
// callers never share token slices with the store.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*domain.UserAccount
	byEmail map[string]string // email -> userID
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]*domain.UserAccount),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrUserNotFound()
	}
	return s.byID[id].Clone(), nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound()
	}
	return a.Clone(), nil
}

func (s *UserStore) FindByActiveToken(ctx context.Context, id, token, scope string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok || !a.HasToken(scope, token) {
		return nil, domain.ErrUserNotFound()
	}
	return a.Clone(), nil
}

func (s *UserStore) Insert(ctx context.Context, a *domain.UserAccount) (string, error) {
	if a == nil || a.ID == "" {
		return "", domain.ErrMissingField("id")
	}
	email := domain.NormalizeEmail(a.Email)
	if email == "" {
		return "", domain.ErrMissingField("email")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return "", domain.ErrEmailAlreadyExists()
	}
	if _, exists := s.byID[a.ID]; exists {
		return "", domain.ErrInternal(nil)
	}

	c := a.Clone()
	c.Email = email
	s.byID[c.ID] = c
	s.byEmail[email] = c.ID
	return c.ID, nil
}

// Save replaces the stored account, token set included.
func (s *UserStore) Save(ctx context.Context, a *domain.UserAccount) error {
	if a == nil {
		return domain.ErrMissingField("id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[a.ID]
	if !ok {
		return domain.ErrUserNotFound()
	}

	email := domain.NormalizeEmail(a.Email)
	if email != cur.Email {
		if owner, taken := s.byEmail[email]; taken && owner != a.ID {
			return domain.ErrEmailAlreadyExists()
		}
		delete(s.byEmail, cur.Email)
		s.byEmail[email] = a.ID
	}

	c := a.Clone()
	c.Email = email
	s.byID[a.ID] = c
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	delete(s.byEmail, a.Email)
	delete(s.byID, id)
	return nil
}

func (s *UserStore) AddToken(ctx context.Context, id string, t domain.AccountToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	a.AddToken(t)
	return nil
}

// RemoveToken is a no-op for unknown accounts and unknown tokens.
func (s *UserStore) RemoveToken(ctx context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.byID[id]; ok {
		a.RemoveToken(token)
	}
	return nil
}
