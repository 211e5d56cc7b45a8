package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// AccountStorage defines account-related database operations.
//
// GetAccountByID and GetAccountByEmail return ErrAccountNotFound for missing
// rows. CreateAccount assigns ID and CreatedAt and returns ErrAccountExists
// when the email is already taken.
type AccountStorage interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccountByID(ctx context.Context, id int64) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
}

// SessionStorage defines session-related database operations.
//
// GetSessionByHash and DeleteSessionByHash return ErrSessionNotFound for
// unknown hashes. DeleteExpiredSessions removes rows with expires_at <= now.
type SessionStorage interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteSessionByHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// PostStorage defines post-related database operations.
//
// UpdatePost writes title, content, author and updated_at only; the owner of
// a post is fixed at insert time.
type PostStorage interface {
	CreatePost(ctx context.Context, p *Post) error
	GetPostByID(ctx context.Context, id int64) (*Post, error)
	ListPostsByOwner(ctx context.Context, ownerID int64) ([]*Post, error)
	UpdatePost(ctx context.Context, p *Post) error
	DeletePost(ctx context.Context, id int64) error
}

type StorageAdapter interface {
	AccountStorage
	SessionStorage
	PostStorage
}

// ============================================
// CACHE PORT
// ============================================

// Cache defines session caching operations. After Delete(h), a Set(h, ...)
// that raced it must not make the session restorable again.
type Cache interface {
	Get(tokenHash string) (*Session, error)
	Set(tokenHash string, session *Session) error
	Delete(tokenHash string) error
	Clear() error
}

// CacheWithStats extends Cache with statistics tracking
type CacheWithStats interface {
	Cache
	Stats() CacheStats
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}

// ============================================
// HANDLER PORTS (for HTTP adapters)
// ============================================

// AuthHandler provides authentication operations for HTTP adapters
type AuthHandler interface {
	SignUp(ctx context.Context, input SignUpInput, client ClientInfo) (*AuthResult, error)
	SignIn(ctx context.Context, input SignInInput, client ClientInfo) (*AuthResult, error)
	SignInFederated(ctx context.Context, email string, client ClientInfo) (*AuthResult, error)
	SignOut(ctx context.Context, token string) error
	GetSession(ctx context.Context, token string) (*Principal, error)
}

// PostHandler provides post operations for HTTP adapters. Every method
// authorizes the principal before touching storage.
type PostHandler interface {
	Create(ctx context.Context, p *Principal, input PostInput) (*Post, error)
	List(ctx context.Context, p *Principal) ([]*Post, error)
	Get(ctx context.Context, p *Principal, id int64) (*Post, error)
	Update(ctx context.Context, p *Principal, id int64, input PostInput) (*Post, error)
	Delete(ctx context.Context, p *Principal, id int64) error
}

// IdentityExchanger runs the third-party half of federated sign-in.
//
// Start returns the provider URL to redirect to and an opaque state value the
// adapter must hand back to Exchange. Exchange returns a verified email.
type IdentityExchanger interface {
	Start(ctx context.Context) (redirectURL, state string, err error)
	Exchange(ctx context.Context, code, stateParam, state string) (string, error)
}
