package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lborres/quill/core"
)

const postColumns = `id, title, content, author, owner_account_id, created_at, updated_at`

func (a *Adapter) CreatePost(ctx context.Context, p *core.Post) error {
	query := `INSERT INTO posts (title, content, author, owner_account_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`

	err := a.pool.QueryRow(ctx, query,
		p.Title, p.Content, p.Author, p.OwnerAccountID, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (a *Adapter) GetPostByID(ctx context.Context, id int64) (*core.Post, error) {
	rows, err := a.pool.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select post: %w", err)
	}
	post, err := pgx.CollectOneRow(rows, scanPost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrPostNotFound
		}
		return nil, fmt.Errorf("select post: %w", err)
	}
	return post, nil
}

func (a *Adapter) ListPostsByOwner(ctx context.Context, ownerID int64) ([]*core.Post, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT `+postColumns+` FROM posts WHERE owner_account_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts, err := pgx.CollectRows(rows, scanPost)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (a *Adapter) UpdatePost(ctx context.Context, p *core.Post) error {
	query := `UPDATE posts SET title = $1, content = $2, author = $3, updated_at = $4
	          WHERE id = $5`

	tag, err := a.pool.Exec(ctx, query, p.Title, p.Content, p.Author, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrPostNotFound
	}
	return nil
}

func (a *Adapter) DeletePost(ctx context.Context, id int64) error {
	tag, err := a.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrPostNotFound
	}
	return nil
}

func scanPost(row pgx.CollectableRow) (*core.Post, error) {
	p := &core.Post{}
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.OwnerAccountID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
