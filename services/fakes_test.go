package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lborres/quill/core"
)

// FakeStorageProvider is a test-only fake implementing core.StorageAdapter.
// It keeps rows in maps and exposes error fields for behavior injection.
type FakeStorageProvider struct {
	mu       sync.RWMutex
	accounts map[int64]*core.Account
	sessions map[string]*core.Session
	posts    map[int64]*core.Post
	nextID   int64

	// error injection
	accountErr error
	createErr  error
	sessionErr error
	postErr    error

	// hang makes every call block until its context is done.
	hang bool

	// delay makes every call take this long, or until its context is done.
	delay time.Duration

	// beforeCreateAccount runs before the uniqueness check, unlocked.
	beforeCreateAccount func(a *core.Account)

	// afterGetSession runs once a session row has been read, unlocked.
	afterGetSession func()
}

var _ core.StorageAdapter = (*FakeStorageProvider)(nil)

func NewFakeStorageProvider() *FakeStorageProvider {
	return &FakeStorageProvider{
		accounts: make(map[int64]*core.Account),
		sessions: make(map[string]*core.Session),
		posts:    make(map[int64]*core.Post),
	}
}

func (f *FakeStorageProvider) wait(ctx context.Context) error {
	f.mu.RLock()
	hang, delay := f.hang, f.delay
	f.mu.RUnlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	return ctx.Err()
}

// Accounts

func (f *FakeStorageProvider) CreateAccount(ctx context.Context, a *core.Account) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.beforeCreateAccount != nil {
		f.beforeCreateAccount(a)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return core.ErrAccountExists
		}
	}
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = time.Now()
	stored := *a
	f.accounts[a.ID] = &stored
	return nil
}

func (f *FakeStorageProvider) GetAccountByID(ctx context.Context, id int64) (*core.Account, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

func (f *FakeStorageProvider) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	for _, a := range f.accounts {
		if a.Email == email {
			out := *a
			return &out, nil
		}
	}
	return nil, core.ErrAccountNotFound
}

// seedAccount stores a directly, bypassing error injection.
func (f *FakeStorageProvider) seedAccount(email, credential string) *core.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a := &core.Account{ID: f.nextID, Email: email, Credential: credential, CreatedAt: time.Now()}
	stored := *a
	f.accounts[a.ID] = &stored
	return a
}

func (f *FakeStorageProvider) accountCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.accounts)
}

// Sessions

func (f *FakeStorageProvider) CreateSession(ctx context.Context, s *core.Session) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return f.sessionErr
	}
	stored := *s
	f.sessions[s.TokenHash] = &stored
	return nil
}

func (f *FakeStorageProvider) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	if f.sessionErr != nil {
		f.mu.RUnlock()
		return nil, f.sessionErr
	}
	s, ok := f.sessions[tokenHash]
	if !ok {
		f.mu.RUnlock()
		return nil, core.ErrSessionNotFound
	}
	out := *s
	hook := f.afterGetSession
	f.mu.RUnlock()

	if hook != nil {
		hook()
	}
	return &out, nil
}

func (f *FakeStorageProvider) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return f.sessionErr
	}
	if _, ok := f.sessions[tokenHash]; !ok {
		return core.ErrSessionNotFound
	}
	delete(f.sessions, tokenHash)
	return nil
}

func (f *FakeStorageProvider) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	if err := f.wait(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return 0, f.sessionErr
	}
	count := 0
	for k, s := range f.sessions {
		if !s.ExpiresAt.After(now) {
			delete(f.sessions, k)
			count++
		}
	}
	return count, nil
}

func (f *FakeStorageProvider) sessionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sessions)
}

func (f *FakeStorageProvider) storedSessions() []*core.Session {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*core.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out
}

// Posts

func (f *FakeStorageProvider) CreatePost(ctx context.Context, p *core.Post) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.nextID++
	p.ID = f.nextID
	stored := *p
	f.posts[p.ID] = &stored
	return nil
}

func (f *FakeStorageProvider) GetPostByID(ctx context.Context, id int64) (*core.Post, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.postErr != nil {
		return nil, f.postErr
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, core.ErrPostNotFound
	}
	out := *p
	return &out, nil
}

func (f *FakeStorageProvider) ListPostsByOwner(ctx context.Context, ownerID int64) ([]*core.Post, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.postErr != nil {
		return nil, f.postErr
	}
	var out []*core.Post
	for _, p := range f.posts {
		if p.OwnerAccountID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeStorageProvider) UpdatePost(ctx context.Context, p *core.Post) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	existing, ok := f.posts[p.ID]
	if !ok {
		return core.ErrPostNotFound
	}
	existing.Title = p.Title
	existing.Content = p.Content
	existing.Author = p.Author
	existing.UpdatedAt = p.UpdatedAt
	return nil
}

func (f *FakeStorageProvider) DeletePost(ctx context.Context, id int64) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	if _, ok := f.posts[id]; !ok {
		return core.ErrPostNotFound
	}
	delete(f.posts, id)
	return nil
}

// FakeCache is a test-only fake implementing core.Cache. Deleted hashes are
// never cached again.
type FakeCache struct {
	mu      sync.RWMutex
	cache   map[string]*core.Session
	deleted map[string]bool
	hits    int
	misses  int
}

func NewFakeCache() *FakeCache {
	return &FakeCache{
		cache:   make(map[string]*core.Session),
		deleted: make(map[string]bool),
	}
}

func (f *FakeCache) Get(tokenHash string) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.cache[tokenHash]
	if !ok {
		f.misses++
		return nil, core.ErrCacheNotFound
	}
	f.hits++
	out := *s
	return &out, nil
}

func (f *FakeCache) Set(tokenHash string, session *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted[tokenHash] {
		return nil
	}
	s := *session
	f.cache[tokenHash] = &s
	return nil
}

func (f *FakeCache) Delete(tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, tokenHash)
	f.deleted[tokenHash] = true
	return nil
}

func (f *FakeCache) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]*core.Session)
	return nil
}

func (f *FakeCache) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache)
}

func (f *FakeCache) Hits() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.hits
}
