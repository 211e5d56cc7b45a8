package services

import (
	"context"

	"github.com/lborres/quill/core"
)

// AuthService ties the credential strategies to session issuance.
type AuthService struct {
	local     *LocalStrategy
	federated *FederatedStrategy
	sessions  *SessionManager
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

func NewAuthService(local *LocalStrategy, federated *FederatedStrategy, sessions *SessionManager) *AuthService {
	return &AuthService{
		local:     local,
		federated: federated,
		sessions:  sessions,
	}
}

// SignUp registers a password account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, input core.SignUpInput, client core.ClientInfo) (*core.AuthResult, error) {
	principal, err := s.local.Register(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, principal, client)
}

// SignIn authenticates with email and password and opens a session.
func (s *AuthService) SignIn(ctx context.Context, input core.SignInInput, client core.ClientInfo) (*core.AuthResult, error) {
	principal, err := s.local.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, principal, client)
}

// SignInFederated opens a session for an email already verified by the
// identity provider.
func (s *AuthService) SignInFederated(ctx context.Context, email string, client core.ClientInfo) (*core.AuthResult, error) {
	principal, err := s.federated.Authenticate(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, principal, client)
}

// SignOut invalidates the session behind token.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// GetSession returns the principal for token, or nil when there is none.
func (s *AuthService) GetSession(ctx context.Context, token string) (*core.Principal, error) {
	return s.sessions.Restore(ctx, token)
}

func (s *AuthService) establish(ctx context.Context, principal *core.Principal, client core.ClientInfo) (*core.AuthResult, error) {
	result, err := s.sessions.Establish(ctx, principal, client)
	if err != nil {
		return nil, err
	}
	return &core.AuthResult{
		Principal: principal,
		Session:   result.Session,
		Token:     result.Token,
	}, nil
}
