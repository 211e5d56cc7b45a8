package core

import (
	"time"

	"go.uber.org/zap"

	"github.com/lborres/quill/pkg/crypto"
)

type Config struct {
	Secret string

	Database StorageAdapter

	// Optional config
	CacheAdapter   Cache
	SessionConfig  *SessionConfig
	PasswordHasher crypto.PasswordHandler
	Federation     IdentityExchanger
	Logger         *zap.Logger

	// StrictOwnership restricts edit and delete to the post owner. When false
	// any authenticated principal may mutate any post by id.
	StrictOwnership bool

	// LinkFederatedToLocal lets a federated sign-in resolve to an existing
	// password account with the same email.
	LinkFederatedToLocal bool

	// StoreTimeout bounds every storage round trip. Zero disables the bound.
	StoreTimeout time.Duration
}
