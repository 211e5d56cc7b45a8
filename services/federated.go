package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lborres/quill/core"
)

// FederatedStrategy maps an identity provider's verified email to an account,
// provisioning one on first sign-in.
type FederatedStrategy struct {
	accounts  core.AccountStorage
	linkLocal bool
	timeout   time.Duration
	logger    *zap.Logger
}

func NewFederatedStrategy(accounts core.AccountStorage, linkLocal bool, timeout time.Duration, logger *zap.Logger) *FederatedStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FederatedStrategy{
		accounts:  accounts,
		linkLocal: linkLocal,
		timeout:   timeout,
		logger:    logger.Named("federated"),
	}
}

// Authenticate returns the principal for email. An existing account is reused;
// a password account only when linking is enabled.
func (f *FederatedStrategy) Authenticate(ctx context.Context, email string) (*core.Principal, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, core.ErrFederationExchangeFailed
	}

	sctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	account, err := f.accounts.GetAccountByEmail(sctx, email)
	switch {
	case err == nil:
		return f.resolve(account)
	case !errors.Is(err, core.ErrAccountNotFound):
		return nil, storeError("failed to find account", err)
	}

	account = &core.Account{
		Email:      email,
		Credential: core.FederatedCredential,
	}
	err = f.accounts.CreateAccount(sctx, account)
	if err == nil {
		f.logger.Info("federated account provisioned", zap.Int64("account_id", account.ID))
		return account.Principal(), nil
	}
	if !errors.Is(err, core.ErrAccountExists) {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", core.ErrProvisioningFailed, core.ErrTimeout)
		}
		return nil, fmt.Errorf("%w: %w", core.ErrProvisioningFailed, err)
	}

	// Lost an insert race with a concurrent first sign-in for the same email.
	account, err = f.accounts.GetAccountByEmail(sctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrProvisioningFailed, err)
	}
	return f.resolve(account)
}

func (f *FederatedStrategy) resolve(account *core.Account) (*core.Principal, error) {
	if !account.IsFederated() && !f.linkLocal {
		return nil, core.ErrLinkingDisabled
	}
	return account.Principal(), nil
}
