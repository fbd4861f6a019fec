package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/baechuer/tokenauth/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *auditLog) record(action string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, fields: fields})
}

func (a *auditLog) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.action)
	}
	return out
}

/*
Fakes for ports
*/

type fakeUserStore struct {
	mu sync.Mutex

	byID map[string]*domain.UserAccount

	// injected errors (if set, method returns error)
	findErr        error
	insertErr      error
	saveErr        error
	deleteErr      error
	addTokenErr    error
	removeTokenErr error

	// record calls
	saved   []string
	deleted []string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[string]*domain.UserAccount{}}
}

func (f *fakeUserStore) put(a *domain.UserAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = a.Clone()
}

func (f *fakeUserStore) get(id string) *domain.UserAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Clone()
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, a := range f.byID {
		if a.Email == email {
			return a.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound()
}

func (f *fakeUserStore) FindByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound()
	}
	return a.Clone(), nil
}

func (f *fakeUserStore) FindByActiveToken(ctx context.Context, id, token, scope string) (*domain.UserAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}
	a, ok := f.byID[id]
	if !ok || !a.HasToken(scope, token) {
		return nil, domain.ErrUserNotFound()
	}
	return a.Clone(), nil
}

func (f *fakeUserStore) Insert(ctx context.Context, a *domain.UserAccount) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return "", f.insertErr
	}
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return "", domain.ErrEmailAlreadyExists()
		}
	}
	f.byID[a.ID] = a.Clone()
	return a.ID, nil
}

func (f *fakeUserStore) Save(ctx context.Context, a *domain.UserAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.byID[a.ID]; !ok {
		return domain.ErrUserNotFound()
	}
	f.byID[a.ID] = a.Clone()
	f.saved = append(f.saved, a.ID)
	return nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUserStore) AddToken(ctx context.Context, id string, t domain.AccountToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.addTokenErr != nil {
		return f.addTokenErr
	}
	a, ok := f.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	a.AddToken(t)
	return nil
}

func (f *fakeUserStore) RemoveToken(ctx context.Context, id, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.removeTokenErr != nil {
		return f.removeTokenErr
	}
	if a, ok := f.byID[id]; ok {
		a.RemoveToken(token)
	}
	return nil
}

type fakeHasher struct {
	mu        sync.Mutex
	hashCalls int
	hashErr   error
}

func (h *fakeHasher) Hash(ctx context.Context, password string) (string, error) {
	h.mu.Lock()
	h.hashCalls++
	h.mu.Unlock()

	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Verify(ctx context.Context, password, hash string) bool {
	return hash == "hash:"+password
}

func (h *fakeHasher) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hashCalls
}

// fakeCodec issues "sig:<subject>:<scope>:<n>" tokens and only verifies
// tokens it issued itself.
type fakeCodec struct {
	mu      sync.Mutex
	n       int
	signErr error
}

func (c *fakeCodec) Sign(claims domain.TokenClaims) (string, error) {
	if c.signErr != nil {
		return "", c.signErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("sig:%s:%s:%d", claims.SubjectID, claims.Scope, c.n), nil
}

func (c *fakeCodec) Verify(token string) (domain.TokenClaims, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 {
		return domain.TokenClaims{}, domain.ErrTokenMalformed(errors.New("bad parts"))
	}
	if parts[0] != "sig" {
		return domain.TokenClaims{}, domain.ErrTokenInvalid()
	}
	return domain.TokenClaims{SubjectID: parts[1], Scope: parts[2]}, nil
}

type fakePublisher struct {
	mu         sync.Mutex
	err        error
	hang       bool // wait for ctx to end, like an unresponsive broker
	registered []AccountEvent
	deleted    []AccountEvent
}

func (p *fakePublisher) PublishAccountRegistered(ctx context.Context, evt AccountEvent) error {
	if p.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.registered = append(p.registered, evt)
	return nil
}

func (p *fakePublisher) PublishAccountDeleted(ctx context.Context, evt AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.deleted = append(p.deleted, evt)
	return nil
}

type testDeps struct {
	svc    *Service
	users  *fakeUserStore
	hasher *fakeHasher
	codec  *fakeCodec
	pub    *fakePublisher
	audit  *auditLog
}

func newSvcForTest(t *testing.T) testDeps {
	t.Helper()

	d := testDeps{
		users:  newFakeUserStore(),
		hasher: &fakeHasher{},
		codec:  &fakeCodec{},
		pub:    &fakePublisher{},
		audit:  &auditLog{},
	}
	d.svc = NewService(d.users, d.hasher, d.codec, d.pub).WithAudit(d.audit.record)
	return d
}

// seedAccount stores an account with password hash "hash:<password>".
func seedAccount(t *testing.T, users *fakeUserStore, id, email, password string) *domain.UserAccount {
	t.Helper()
	a := &domain.UserAccount{ID: id, Email: email, PasswordHash: "hash:" + password}
	users.put(a)
	return a
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code %q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected error code %q, got %v", code, err)
	}
}
