package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lborres/quill/core"
)

func (a *Adapter) CreateSession(ctx context.Context, s *core.Session) error {
	query := `INSERT INTO sessions (id, account_id, email, token_hash, ip_address, user_agent, expires_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := a.pool.Exec(ctx, query,
		s.ID, s.AccountID, s.Email, s.TokenHash, s.IPAddress, s.UserAgent, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (a *Adapter) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	query := `SELECT id, account_id, email, token_hash, ip_address, user_agent, expires_at, created_at
	          FROM sessions WHERE token_hash = $1`

	s := &core.Session{}
	err := a.pool.QueryRow(ctx, query, tokenHash).Scan(
		&s.ID, &s.AccountID, &s.Email, &s.TokenHash, &s.IPAddress, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return s, nil
}

func (a *Adapter) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	tag, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
