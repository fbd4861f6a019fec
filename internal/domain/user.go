package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScopeAuth is the only token scope issued today.
const ScopeAuth = "auth"

// AccountToken is one active session of an account.
type AccountToken struct {
	Scope string
	Token string
}

// TokenClaims is the payload carried inside a signed token.
type TokenClaims struct {
	SubjectID string
	Scope     string
	ExpiresAt time.Time // zero when the token never expires
}

// PasswordHasher hashes and verifies plaintext passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) bool
}

// TokenSigner produces signed tokens from claims.
type TokenSigner interface {
	Sign(claims TokenClaims) (string, error)
}

// UserAccount is the aggregate of identity, password hash and active tokens.
// All mutating operations act on the receiver only; persisting the change is
// the caller's job.
type UserAccount struct {
	ID           string
	Email        string
	PasswordHash string
	Tokens       []AccountToken
	CreatedAt    time.Time
}

// AccountView is the only shape of an account that leaves the service.
type AccountView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// NewUserAccount validates the inputs, hashes the password and returns an
// unsaved account with a fresh ID.
func NewUserAccount(ctx context.Context, hasher PasswordHasher, email, password string) (*UserAccount, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	return &UserAccount{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// GenerateAuthToken signs a new auth token for a and appends it to a.Tokens.
func (a *UserAccount) GenerateAuthToken(signer TokenSigner) (string, error) {
	tok, err := signer.Sign(TokenClaims{SubjectID: a.ID, Scope: ScopeAuth})
	if err != nil {
		return "", err
	}
	a.AddToken(AccountToken{Scope: ScopeAuth, Token: tok})
	return tok, nil
}

// AddToken appends t unless a token with the same value is already present.
func (a *UserAccount) AddToken(t AccountToken) {
	for _, existing := range a.Tokens {
		if existing.Token == t.Token {
			return
		}
	}
	a.Tokens = append(a.Tokens, t)
}

// RemoveToken drops every entry whose value matches token, regardless of
// scope. It reports whether anything was removed.
func (a *UserAccount) RemoveToken(token string) bool {
	kept := a.Tokens[:0]
	removed := false
	for _, t := range a.Tokens {
		if t.Token == token {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	a.Tokens = kept
	return removed
}

// HasToken reports whether (scope, token) is active on a.
func (a *UserAccount) HasToken(scope, token string) bool {
	for _, t := range a.Tokens {
		if t.Scope == scope && t.Token == token {
			return true
		}
	}
	return false
}

// SetPassword replaces the password hash after validating the new password.
func (a *UserAccount) SetPassword(ctx context.Context, hasher PasswordHasher, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *UserAccount) CheckPassword(ctx context.Context, hasher PasswordHasher, password string) bool {
	return hasher.Verify(ctx, password, a.PasswordHash)
}

func (a *UserAccount) RedactedView() AccountView {
	return AccountView{ID: a.ID, Email: a.Email}
}

// Clone returns a deep copy so stores never share token slices with callers.
func (a *UserAccount) Clone() *UserAccount {
	if a == nil {
		return nil
	}
	c := *a
	if a.Tokens != nil {
		c.Tokens = make([]AccountToken, len(a.Tokens))
		copy(c.Tokens, a.Tokens)
	}
	return &c
}
