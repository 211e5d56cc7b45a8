package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lborres/quill/core"
)

func (a *Adapter) CreateAccount(ctx context.Context, acc *core.Account) error {
	query := `INSERT INTO accounts (email, credential)
	          VALUES ($1, $2)
	          RETURNING id, created_at`

	err := a.pool.QueryRow(ctx, query, acc.Email, acc.Credential).Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (a *Adapter) GetAccountByID(ctx context.Context, id int64) (*core.Account, error) {
	query := `SELECT id, email, credential, created_at FROM accounts WHERE id = $1`
	return a.scanAccount(a.pool.QueryRow(ctx, query, id))
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	query := `SELECT id, email, credential, created_at FROM accounts WHERE email = $1`
	return a.scanAccount(a.pool.QueryRow(ctx, query, email))
}

func (a *Adapter) scanAccount(row pgx.Row) (*core.Account, error) {
	acc := &core.Account{}
	err := row.Scan(&acc.ID, &acc.Email, &acc.Credential, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrAccountNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	return acc, nil
}
