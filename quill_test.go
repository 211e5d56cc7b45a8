package quill

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lborres/quill/adapters/sqlite"
	"github.com/lborres/quill/core"
	"github.com/lborres/quill/pkg/crypto"
)

const testSecret = "01234567890123456789012345678901"

func newTestStore(t *testing.T) StorageAdapter {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db))
	return sqlite.New(db)
}

func cheapHasher() PasswordHandler {
	return &crypto.Argon2{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

// Requirement: New rejects a missing or short secret and a missing database.
func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "missing secret",
			config:  Config{Database: newTestStore(t)},
			wantErr: ErrSecretRequired,
		},
		{
			name:    "short secret",
			config:  Config{Secret: "short-secret", Database: newTestStore(t)},
			wantErr: ErrSecretTooShort,
		},
		{
			name:    "missing database",
			config:  Config{Secret: testSecret},
			wantErr: ErrDBAdapterRequired,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			_, err := New(test.config)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v sentinel (errors.Is), got %v", test.wantErr, err)
			}
		})
	}
}

func TestNewShouldReturnErrSecretTooShort(t *testing.T) {
	_, err := New(Config{Secret: "short-secret", Database: newTestStore(t)})

	if !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort sentinel (errors.Is), got %v", err)
	}
	// Message should include the minimum length
	if !strings.Contains(err.Error(), "32") {
		t.Fatalf("expected error message to include minimum length, got %v", err)
	}
}

// Requirement: the assembled services run the sign-up, post and sign-out flow
// against a real store.
func TestNewAssemblesWorkingServices(t *testing.T) {
	ctx := context.Background()
	q, err := New(Config{
		Secret:          testSecret,
		Database:        newTestStore(t),
		PasswordHasher:  cheapHasher(),
		CacheAdapter:    NewInMemoryCache(CacheConfig{}),
		StrictOwnership: true,
	})
	require.NoError(t, err)

	res, err := q.Auth.SignUp(ctx, core.SignUpInput{Email: "a@x.com", Password: "secret1"}, core.ClientInfo{})
	require.NoError(t, err)

	principal, err := q.Auth.GetSession(ctx, res.Token)
	require.NoError(t, err)
	require.NotNil(t, principal)
	require.Equal(t, res.Principal.AccountID, principal.AccountID)

	_, err = q.Posts.Create(ctx, principal, PostInput{Title: "T", Content: "C", Author: "A"})
	require.NoError(t, err)
	posts, err := q.Posts.List(ctx, principal)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	require.NoError(t, q.Auth.SignOut(ctx, res.Token))
	principal, err = q.Auth.GetSession(ctx, res.Token)
	require.NoError(t, err)
	require.Nil(t, principal)
}

func TestNewRegistersEveryEndpoint(t *testing.T) {
	q, err := New(Config{Secret: testSecret, Database: newTestStore(t)})
	require.NoError(t, err)

	require.Len(t, q.Endpoints.Endpoints(), 14)
	require.Nil(t, q.Federation)
}
