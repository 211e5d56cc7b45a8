package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lborres/quill/core"
	"github.com/lborres/quill/pkg/crypto"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 128
)

// LocalStrategy authenticates and registers accounts by email and password.
type LocalStrategy struct {
	accounts  core.AccountStorage
	passwords crypto.PasswordHandler
	timeout   time.Duration
	logger    *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewLocalStrategy(accounts core.AccountStorage, passwords crypto.PasswordHandler, timeout time.Duration, logger *zap.Logger) *LocalStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStrategy{
		accounts:  accounts,
		passwords: passwords,
		timeout:   timeout,
		logger:    logger.Named("local"),
	}
}

// Authenticate resolves email and password to a principal.
//
// Unknown emails, federated accounts, wrong passwords and unreadable digests
// all surface as core.ErrInvalidCredentials.
func (l *LocalStrategy) Authenticate(ctx context.Context, email, password string) (*core.Principal, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, core.ErrInvalidCredentials
	}

	sctx, cancel := withTimeout(ctx, l.timeout)
	account, err := l.accounts.GetAccountByEmail(sctx, email)
	cancel()
	if errors.Is(err, core.ErrAccountNotFound) {
		l.burnVerify(password)
		return nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeError("failed to find account", err)
	}

	if account.IsFederated() {
		l.burnVerify(password)
		return nil, core.ErrInvalidCredentials
	}

	valid, err := l.passwords.Verify(password, account.Credential)
	if err != nil {
		l.logger.Error("password verification failed",
			zap.Int64("account_id", account.ID),
			zap.Error(fmt.Errorf("%w: %w", core.ErrCredentialSystem, err)),
		)
		return nil, core.ErrInvalidCredentials
	}
	if !valid {
		return nil, core.ErrInvalidCredentials
	}

	return account.Principal(), nil
}

// Register creates a password account for email and returns its principal.
func (l *LocalStrategy) Register(ctx context.Context, email, password string) (*core.Principal, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	lctx, cancel := withTimeout(ctx, l.timeout)
	_, err := l.accounts.GetAccountByEmail(lctx, email)
	cancel()
	switch {
	case err == nil:
		return nil, core.ErrAccountExists
	case !errors.Is(err, core.ErrAccountNotFound):
		return nil, storeError("failed to check existing account", err)
	}

	digest, err := l.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCredentialSystem, err)
	}

	account := &core.Account{
		Email:      email,
		Credential: digest,
	}
	cctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()
	if err := l.accounts.CreateAccount(cctx, account); err != nil {
		if errors.Is(err, core.ErrAccountExists) {
			return nil, core.ErrAccountExists
		}
		return nil, storeError("failed to create account", err)
	}

	l.logger.Info("account registered", zap.Int64("account_id", account.ID))
	return account.Principal(), nil
}

// burnVerify spends roughly one verification on a throwaway digest so that
// unknown emails cost the same as wrong passwords.
func (l *LocalStrategy) burnVerify(password string) {
	l.dummyOnce.Do(func() {
		l.dummyHash, _ = l.passwords.Hash("quill-dummy-password")
	})
	if l.dummyHash != "" {
		_, _ = l.passwords.Verify(password, l.dummyHash)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" {
		return core.ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return core.ErrInvalidEmail
	}
	if password == "" {
		return core.ErrPasswordRequired
	}
	if len(password) < minPasswordLength {
		return core.ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return core.ErrPasswordTooLong
	}
	return nil
}
