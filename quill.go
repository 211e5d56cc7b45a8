package quill

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lborres/quill/core"
	"github.com/lborres/quill/pkg/cache"
	"github.com/lborres/quill/pkg/crypto"
	"github.com/lborres/quill/services"
)

// interfaces
type (
	StorageAdapter    = core.StorageAdapter
	Cache             = core.Cache
	IdentityExchanger = core.IdentityExchanger
	PasswordHandler   = crypto.PasswordHandler
)

// structs
type (
	Config        = core.Config
	SessionConfig = core.SessionConfig
	CacheConfig   = core.CacheConfig
)

type (
	Account   = core.Account
	Principal = core.Principal
	Session   = core.Session
	Post      = core.Post
	PostInput = core.PostInput
)

const minSecretLen = 32

// Constructors & helpers (convenience re-exports)
var (
	NewInMemoryCache     = cache.NewInMemoryCache
	NewArgon2            = crypto.NewArgon2
	NewMultiHasher       = crypto.NewMultiHasher
	DefaultSessionConfig = core.DefaultSessionConfig
	WithPrincipal        = core.WithPrincipal
	PrincipalFromContext = core.PrincipalFromContext
)

var (
	ErrInvalidCredentials       = core.ErrInvalidCredentials
	ErrNotAuthenticated         = core.ErrNotAuthenticated
	ErrProvisioningFailed       = core.ErrProvisioningFailed
	ErrFederationExchangeFailed = core.ErrFederationExchangeFailed
	ErrLinkingDisabled          = core.ErrLinkingDisabled
	ErrTimeout                  = core.ErrTimeout
	ErrSession                  = core.ErrSession
	ErrCredentialSystem         = core.ErrCredentialSystem
)

var (
	ErrAccountExists = core.ErrAccountExists
	ErrPostNotFound  = core.ErrPostNotFound
	ErrForbidden     = core.ErrForbidden
)

var (
	ErrDBAdapterRequired = core.ErrDBAdapterRequired
	ErrSecretRequired    = core.ErrSecretRequired
	ErrSecretTooShort    = core.ErrSecretTooShort
)

// Quill holds the assembled services. HTTP adapters bind to Auth, Posts and
// Endpoints; the process sweeps expired sessions through Sessions.
type Quill struct {
	Sessions   *services.SessionManager
	Auth       *services.AuthService
	Posts      *services.PostService
	Endpoints  *services.EndpointRegistry
	Federation core.IdentityExchanger
}

func New(config Config) (*Quill, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < minSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, minSecretLen)
	}
	if config.Database == nil {
		return nil, ErrDBAdapterRequired
	}

	// Set Defaults

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sessionConfig := config.SessionConfig
	if sessionConfig == nil {
		defaults := DefaultSessionConfig()
		sessionConfig = &defaults
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewMultiHasher()
	}

	sessions := services.NewSessionManager(
		*sessionConfig,
		config.Database,
		config.CacheAdapter,
		config.StoreTimeout,
		logger,
	)
	local := services.NewLocalStrategy(config.Database, passwordHasher, config.StoreTimeout, logger)
	federated := services.NewFederatedStrategy(config.Database, config.LinkFederatedToLocal, config.StoreTimeout, logger)
	gate := services.NewGate(config.StrictOwnership)

	return &Quill{
		Sessions:   sessions,
		Auth:       services.NewAuthService(local, federated, sessions),
		Posts:      services.NewPostService(config.Database, gate, config.StoreTimeout, logger),
		Endpoints:  services.NewEndpointRegistry(),
		Federation: config.Federation,
	}, nil
}
