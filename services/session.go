package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lborres/quill/core"
	"github.com/lborres/quill/pkg/crypto"
)

// SessionManager turns principals into opaque session tokens and back.
//
// Only the SHA-256 of a token is persisted. A restored session yields exactly
// the principal it was established for.
type SessionManager struct {
	config  core.SessionConfig
	storage core.SessionStorage
	cache   core.Cache // optional, can be nil if caching is disabled
	nanoid  *crypto.NanoIDGenerator
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewSessionManager(config core.SessionConfig, storage core.SessionStorage, cache core.Cache, timeout time.Duration, logger *zap.Logger) *SessionManager {
	if config.MaxAge <= 0 {
		config = core.DefaultSessionConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	nanoid, _ := crypto.NewNanoID("", 0)
	return &SessionManager{
		config:  config,
		storage: storage,
		cache:   cache,
		nanoid:  nanoid,
		timeout: timeout,
		logger:  logger.Named("session"),
		now:     time.Now,
	}
}

// Establish persists a new session for p and returns the client token.
func (sm *SessionManager) Establish(ctx context.Context, p *core.Principal, client core.ClientInfo) (*core.CreateSessionResult, error) {
	if p == nil {
		return nil, core.ErrNotAuthenticated
	}

	pair, err := crypto.GenerateHashedToken(crypto.DefaultTokenLength)
	if err != nil {
		return nil, sessionError("generate token", err)
	}

	sessionID, err := sm.nanoid.Generate()
	if err != nil {
		return nil, sessionError("generate session id", err)
	}

	now := sm.now()
	session := &core.Session{
		ID:        sessionID,
		AccountID: p.AccountID,
		Email:     p.Email,
		TokenHash: pair.Hash,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.config.MaxAge),
	}

	sctx, cancel := withTimeout(ctx, sm.timeout)
	defer cancel()
	if err := sm.storage.CreateSession(sctx, session); err != nil {
		return nil, sessionError("create session", err)
	}

	if sm.cache != nil {
		// We don't fail the request if caching fails
		_ = sm.cache.Set(pair.Hash, session)
	}

	sm.logger.Debug("session established", zap.String("session_id", session.ID), zap.Int64("account_id", p.AccountID))
	return &core.CreateSessionResult{Session: session, Token: pair.Token}, nil
}

// Restore resolves token to its principal. Missing, malformed, unknown and
// expired tokens yield (nil, nil); an error means the backing store failed.
func (sm *SessionManager) Restore(ctx context.Context, token string) (*core.Principal, error) {
	if !crypto.WellFormedToken(token, crypto.DefaultTokenLength) {
		return nil, nil
	}

	tokenHash := crypto.HashToken(token)
	now := sm.now()

	if sm.cache != nil {
		if session, err := sm.cache.Get(tokenHash); err == nil {
			if now.Before(session.ExpiresAt) {
				return session.Principal(), nil
			}
			_ = sm.cache.Delete(tokenHash)
		}
	}

	sctx, cancel := withTimeout(ctx, sm.timeout)
	session, err := sm.storage.GetSessionByHash(sctx, tokenHash)
	cancel()
	if errors.Is(err, core.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, sessionError("get session", err)
	}

	if valid, err := crypto.VerifyToken(token, session.TokenHash); err != nil || !valid {
		return nil, nil
	}

	if !now.Before(session.ExpiresAt) {
		dctx, cancel := withTimeout(ctx, sm.timeout)
		defer cancel()
		if err := sm.storage.DeleteSessionByHash(dctx, tokenHash); err != nil && !errors.Is(err, core.ErrSessionNotFound) {
			sm.logger.Warn("failed to delete expired session", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, nil
	}

	if sm.cache != nil {
		_ = sm.cache.Set(tokenHash, session)
	}

	return session.Principal(), nil
}

// CurrentPrincipal reads the principal restored for the request carried by ctx.
func (sm *SessionManager) CurrentPrincipal(ctx context.Context) (*core.Principal, bool) {
	return core.PrincipalFromContext(ctx)
}

// Destroy invalidates token. Destroying an absent or unknown session is a no-op.
func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	tokenHash := crypto.HashToken(token)

	if sm.cache != nil {
		_ = sm.cache.Delete(tokenHash)
	}

	sctx, cancel := withTimeout(ctx, sm.timeout)
	defer cancel()

	err := sm.storage.DeleteSessionByHash(sctx, tokenHash)
	if err != nil && !errors.Is(err, core.ErrSessionNotFound) {
		return sessionError("delete session", err)
	}
	return nil
}

// Sweep removes expired sessions from storage and returns how many were deleted.
func (sm *SessionManager) Sweep(ctx context.Context) (int, error) {
	sctx, cancel := withTimeout(ctx, sm.timeout)
	defer cancel()

	count, err := sm.storage.DeleteExpiredSessions(sctx, sm.now())
	if err != nil {
		return 0, sessionError("delete expired sessions", err)
	}
	return count, nil
}
