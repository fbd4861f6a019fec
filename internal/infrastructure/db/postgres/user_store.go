package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/tokenauth/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// UserStore persists accounts in two tables: users and user_tokens. Token
// writes are single statements so concurrent logins never overwrite each
// other.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// ---------- helpers ----------

const selectUser = `
SELECT id, email, password_hash, created_at
FROM users
`

func scanUser(row *sql.Row) (userRow, error) {
	var ur userRow
	err := row.Scan(&ur.ID, &ur.Email, &ur.PasswordHash, &ur.CreatedAt)
	return ur, err
}

func loadTokens(ctx context.Context, q DBTX, userID string) ([]domain.AccountToken, error) {
	const stmt = `
SELECT scope, token
FROM user_tokens
WHERE user_id = $1
ORDER BY seq;
`
	rows, err := q.QueryContext(ctx, stmt, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AccountToken
	for rows.Next() {
		var t domain.AccountToken
		if err := rows.Scan(&t.Scope, &t.Token); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func insertTokens(ctx context.Context, q DBTX, userID string, tokens []domain.AccountToken) error {
	const stmt = `
INSERT INTO user_tokens (user_id, scope, token)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, token) DO NOTHING;
`
	for _, t := range tokens {
		if _, err := q.ExecContext(ctx, stmt, userID, t.Scope, t.Token); err != nil {
			return err
		}
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, where string, args ...any) (*domain.UserAccount, error) {
	ur, err := scanUser(s.db.QueryRowContext(ctx, selectUser+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound()
		}
		return nil, domain.ErrDBUnavailable(err)
	}

	tokens, err := loadTokens(ctx, s.db, ur.ID)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(tokens), nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isDuplicate(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

// ---------- auth.UserStore ----------

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrMissingField("email")
	}
	return s.findOne(ctx, "WHERE email = $1 LIMIT 1;", email)
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrMissingField("id")
	}
	return s.findOne(ctx, "WHERE id = $1 LIMIT 1;", id)
}

func (s *UserStore) FindByActiveToken(ctx context.Context, id, token, scope string) (*domain.UserAccount, error) {
	if id == "" || token == "" {
		return nil, domain.ErrUserNotFound()
	}
	return s.findOne(ctx, `
WHERE id = $1
  AND EXISTS (
    SELECT 1 FROM user_tokens t
    WHERE t.user_id = users.id AND t.token = $2 AND t.scope = $3
  )
LIMIT 1;`, id, token, scope)
}

func (s *UserStore) Insert(ctx context.Context, a *domain.UserAccount) (string, error) {
	if a == nil || a.ID == "" {
		return "", domain.ErrMissingField("id")
	}
	email := domain.NormalizeEmail(a.Email)
	if email == "" {
		return "", domain.ErrMissingField("email")
	}
	if a.PasswordHash == "" {
		return "", domain.ErrMissingField("password_hash")
	}

	const q = `
INSERT INTO users (id, email, password_hash, created_at)
VALUES ($1, $2, $3, $4);
`
	err := withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, q, a.ID, email, a.PasswordHash, a.CreatedAt); err != nil {
			return err
		}
		return insertTokens(ctx, tx, a.ID, a.Tokens)
	})
	if err != nil {
		if isDuplicate(err) {
			return "", domain.ErrEmailAlreadyExists()
		}
		return "", domain.ErrDBUnavailable(err)
	}
	return a.ID, nil
}

// Save overwrites email, password hash and the whole token set.
func (s *UserStore) Save(ctx context.Context, a *domain.UserAccount) error {
	if a == nil || a.ID == "" {
		return domain.ErrMissingField("id")
	}
	email := domain.NormalizeEmail(a.Email)

	const upd = `
UPDATE users
SET email = $2,
    password_hash = $3
WHERE id = $1;
`
	const clear = `DELETE FROM user_tokens WHERE user_id = $1;`

	var notFound bool
	err := withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, upd, a.ID, email, a.PasswordHash)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			notFound = true
			return domain.ErrUserNotFound()
		}
		if _, err := tx.ExecContext(ctx, clear, a.ID); err != nil {
			return err
		}
		return insertTokens(ctx, tx, a.ID, a.Tokens)
	})
	switch {
	case err == nil:
		return nil
	case notFound:
		return domain.ErrUserNotFound()
	case isDuplicate(err):
		return domain.ErrEmailAlreadyExists()
	default:
		return domain.ErrDBUnavailable(err)
	}
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM users WHERE id = $1;`

	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (s *UserStore) AddToken(ctx context.Context, id string, t domain.AccountToken) error {
	const q = `
INSERT INTO user_tokens (user_id, scope, token)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, token) DO NOTHING;
`
	if _, err := s.db.ExecContext(ctx, q, id, t.Scope, t.Token); err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.ErrUserNotFound()
		}
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (s *UserStore) RemoveToken(ctx context.Context, id, token string) error {
	const q = `DELETE FROM user_tokens WHERE user_id = $1 AND token = $2;`

	if _, err := s.db.ExecContext(ctx, q, id, token); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
