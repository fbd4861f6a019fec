package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/tokenauth/internal/application/auth"
	"github.com/baechuer/tokenauth/internal/domain"
)

// CachedUserStore decorates an auth.UserStore with a Redis cache for
// FindByActiveToken, the lookup every authenticated request performs.
//   - Read path: Redis -> store fallback -> Redis set
//   - Write path: store -> bump the account generation
//
// Cache keys embed a per-account generation. Any write to the account replaces
// it, which orphans every snapshot cached before the write; orphaned keys
// simply expire. Generations are random and never reused, so a generation key
// lost to expiry or eviction cannot bring an orphaned snapshot back.
type CachedUserStore struct {
	inner   auth.UserStore
	rdb     *goredis.Client
	ttl     time.Duration
	keyPref string
}

func NewCachedUserStore(inner auth.UserStore, client *Client, ttl time.Duration) *CachedUserStore {
	var rdb *goredis.Client
	if client != nil {
		rdb = client.rdb
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedUserStore{
		inner:   inner,
		rdb:     rdb,
		ttl:     ttl,
		keyPref: "acttok:",
	}
}

type cachedAccount struct {
	ID           string                `json:"id"`
	Email        string                `json:"email"`
	PasswordHash string                `json:"password_hash"`
	Tokens       []domain.AccountToken `json:"tokens"`
	CreatedAt    time.Time             `json:"created_at"`
}

func (c *CachedUserStore) genKey(userID string) string {
	return c.keyPref + "gen:" + userID
}

// tokens never appear in key names in clear
func (c *CachedUserStore) entryKey(userID, gen, scope, token string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + token))
	return c.keyPref + userID + ":" + gen + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedUserStore) genTTL() time.Duration {
	return 2 * c.ttl
}

// generation returns the account's current generation. fresh is true when no
// generation existed, in which case nothing can be cached under it yet.
func (c *CachedUserStore) generation(ctx context.Context, userID string) (gen string, fresh bool, err error) {
	key := c.genKey(userID)
	gen, err = c.rdb.Get(ctx, key).Result()
	if !errors.Is(err, goredis.Nil) {
		return gen, false, err
	}

	// a concurrent seed or write may win; read back whichever value stands
	if err := c.rdb.SetNX(ctx, key, uuid.NewString(), c.genTTL()).Err(); err != nil {
		return "", false, err
	}
	gen, err = c.rdb.Get(ctx, key).Result()
	return gen, true, err
}

func (c *CachedUserStore) FindByActiveToken(ctx context.Context, id, token, scope string) (*domain.UserAccount, error) {
	if c.rdb == nil {
		return c.inner.FindByActiveToken(ctx, id, token, scope)
	}

	// 1) Try Redis; any redis failure falls back to the store
	gen, fresh, genErr := c.generation(ctx, id)
	if genErr == nil && !fresh {
		raw, err := c.rdb.Get(ctx, c.entryKey(id, gen, scope, token)).Bytes()
		if err == nil {
			var ca cachedAccount
			if json.Unmarshal(raw, &ca) == nil && ca.ID == id {
				return &domain.UserAccount{
					ID:           ca.ID,
					Email:        ca.Email,
					PasswordHash: ca.PasswordHash,
					Tokens:       ca.Tokens,
					CreatedAt:    ca.CreatedAt,
				}, nil
			}
		}
	}

	// 2) Store is the source of truth
	a, err := c.inner.FindByActiveToken(ctx, id, token, scope)
	if err != nil {
		return nil, err
	}

	// 3) Best-effort fill under the generation read before the lookup
	if genErr == nil {
		if b, err := json.Marshal(cachedAccount{
			ID:           a.ID,
			Email:        a.Email,
			PasswordHash: a.PasswordHash,
			Tokens:       a.Tokens,
			CreatedAt:    a.CreatedAt,
		}); err == nil {
			_ = c.rdb.Set(ctx, c.entryKey(id, gen, scope, token), b, c.ttl).Err()
		}
	}
	return a, nil
}

// invalidate orphans every cached snapshot of the account.
func (c *CachedUserStore) invalidate(ctx context.Context, userID string) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, c.genKey(userID), uuid.NewString(), c.genTTL()).Err(); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// RemoveToken must reach the cache too: a revoked token that still resolves
// from Redis is not revoked.
func (c *CachedUserStore) RemoveToken(ctx context.Context, id, token string) error {
	if err := c.inner.RemoveToken(ctx, id, token); err != nil {
		return err
	}
	return c.invalidate(ctx, id)
}

func (c *CachedUserStore) Save(ctx context.Context, a *domain.UserAccount) error {
	if err := c.inner.Save(ctx, a); err != nil {
		return err
	}
	return c.invalidate(ctx, a.ID)
}

func (c *CachedUserStore) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	return c.invalidate(ctx, id)
}

// AddToken only makes cached snapshots incomplete, never wrong about
// revocation, so its invalidation is best effort.
func (c *CachedUserStore) AddToken(ctx context.Context, id string, t domain.AccountToken) error {
	if err := c.inner.AddToken(ctx, id, t); err != nil {
		return err
	}
	_ = c.invalidate(ctx, id)
	return nil
}

/*
Below: delegate the remaining auth.UserStore methods to inner.
*/

func (c *CachedUserStore) FindByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	return c.inner.FindByEmail(ctx, email)
}
func (c *CachedUserStore) FindByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	return c.inner.FindByID(ctx, id)
}
func (c *CachedUserStore) Insert(ctx context.Context, a *domain.UserAccount) (string, error) {
	return c.inner.Insert(ctx, a)
}
