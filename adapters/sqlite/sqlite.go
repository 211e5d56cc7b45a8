// Package sqlite stores accounts, sessions and posts in an embedded SQLite
// database. Timestamps are kept as Unix nanoseconds.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lborres/quill/core"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Adapter struct {
	db *sql.DB
}

var _ core.StorageAdapter = (*Adapter)(nil)

func New(db *sql.DB) *Adapter {
	return &Adapter{db: db}
}

// Open opens dsn with foreign keys enabled. A single connection is used so
// in-memory databases stay shared and writers never contend.
func Open(dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, "_pragma=foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"))
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// Accounts

func (a *Adapter) CreateAccount(ctx context.Context, acc *core.Account) error {
	createdAt := time.Now().UTC()
	res, err := a.db.ExecContext(ctx,
		`INSERT INTO accounts (email, credential, created_at) VALUES (?, ?, ?)`,
		acc.Email, acc.Credential, toUnix(createdAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrAccountExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read account id: %w", err)
	}
	acc.ID = id
	acc.CreatedAt = createdAt
	return nil
}

func (a *Adapter) GetAccountByID(ctx context.Context, id int64) (*core.Account, error) {
	return a.scanAccount(a.db.QueryRowContext(ctx,
		`SELECT id, email, credential, created_at FROM accounts WHERE id = ?`, id))
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	return a.scanAccount(a.db.QueryRowContext(ctx,
		`SELECT id, email, credential, created_at FROM accounts WHERE email = ?`, email))
}

func (a *Adapter) scanAccount(row *sql.Row) (*core.Account, error) {
	acc := &core.Account{}
	var createdAt int64
	if err := row.Scan(&acc.ID, &acc.Email, &acc.Credential, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to select account: %w", err)
	}
	acc.CreatedAt = fromUnix(createdAt)
	return acc, nil
}

// Sessions

func (a *Adapter) CreateSession(ctx context.Context, s *core.Session) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, email, token_hash, ip_address, user_agent, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AccountID, s.Email, s.TokenHash, s.IPAddress, s.UserAgent, toUnix(s.ExpiresAt), toUnix(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (a *Adapter) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	s := &core.Session{}
	var expiresAt, createdAt int64
	err := a.db.QueryRowContext(ctx,
		`SELECT id, account_id, email, token_hash, ip_address, user_agent, expires_at, created_at
		 FROM sessions WHERE token_hash = ?`, tokenHash,
	).Scan(&s.ID, &s.AccountID, &s.Email, &s.TokenHash, &s.IPAddress, &s.UserAgent, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to select session: %w", err)
	}
	s.ExpiresAt = fromUnix(expiresAt)
	s.CreatedAt = fromUnix(createdAt)
	return s, nil
}

func (a *Adapter) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	n, err := a.exec(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	n, err := a.exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toUnix(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return int(n), nil
}

// Posts

const postColumns = `id, title, content, author, owner_account_id, created_at, updated_at`

func (a *Adapter) CreatePost(ctx context.Context, p *core.Post) error {
	res, err := a.db.ExecContext(ctx,
		`INSERT INTO posts (title, content, author, owner_account_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Title, p.Content, p.Author, p.OwnerAccountID, toUnix(p.CreatedAt), toUnix(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read post id: %w", err)
	}
	p.ID = id
	return nil
}

func (a *Adapter) GetPostByID(ctx context.Context, id int64) (*core.Post, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to select post: %w", err)
	}
	return p, nil
}

func (a *Adapter) ListPostsByOwner(ctx context.Context, ownerID int64) ([]*core.Post, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE owner_account_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	result := []*core.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *Adapter) UpdatePost(ctx context.Context, p *core.Post) error {
	n, err := a.exec(ctx,
		`UPDATE posts SET title = ?, content = ?, author = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Content, p.Author, toUnix(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	if n == 0 {
		return core.ErrPostNotFound
	}
	return nil
}

func (a *Adapter) DeletePost(ctx context.Context, id int64) error {
	n, err := a.exec(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if n == 0 {
		return core.ErrPostNotFound
	}
	return nil
}

func (a *Adapter) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*core.Post, error) {
	p := &core.Post{}
	var createdAt, updatedAt int64
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.OwnerAccountID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)
	return p, nil
}
