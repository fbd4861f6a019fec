package postgres

import (
	"time"

	"github.com/baechuer/tokenauth/internal/domain"
)

type userRow struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (ur userRow) toDomain(tokens []domain.AccountToken) *domain.UserAccount {
	return &domain.UserAccount{
		ID:           ur.ID,
		Email:        ur.Email,
		PasswordHash: ur.PasswordHash,
		Tokens:       tokens,
		CreatedAt:    ur.CreatedAt,
	}
}
