package security

import (
	"context"

	"github.com/baechuer/tokenauth/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the work factor used when none is configured.
const DefaultCost = 10

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash runs bcrypt off the caller's goroutine so a cancelled request does not
// wait for the full work factor. The computation itself still finishes in the
// background.
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		hash []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		done <- result{hash: b, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", domain.ErrHashFailed(r.err)
		}
		return string(r.hash), nil
	}
}

// Verify reports whether password matches hash. Malformed hashes and a done
// context both report false.
func (h *BcryptHasher) Verify(ctx context.Context, password, hash string) bool {
	if hash == "" || ctx.Err() != nil {
		return false
	}

	done := make(chan bool, 1)
	go func() {
		done <- bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}()

	select {
	case <-ctx.Done():
		return false
	case ok := <-done:
		return ok
	}
}
