// Package storetest holds the behaviour every core.StorageAdapter must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/quill/core"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) core.StorageAdapter

// Run exercises newStore against the account, session and post contracts.
func Run(t *testing.T, newStore Factory) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("posts", func(t *testing.T) { testPosts(t, newStore(t)) })
	t.Run("post ownership", func(t *testing.T) { testPostOwnership(t, newStore(t)) })
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func createAccount(t *testing.T, s core.StorageAdapter, email string) *core.Account {
	t.Helper()
	acc := &core.Account{Email: email, Credential: "$argon2id$v=19$digest"}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func testAccounts(t *testing.T, s core.StorageAdapter) {
	ctx := context.Background()

	acc := createAccount(t, s, "alice@example.com")
	require.NotZero(t, acc.ID)
	assert.False(t, acc.CreatedAt.IsZero())

	byEmail, err := s.GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byEmail.ID)
	assert.Equal(t, acc.Credential, byEmail.Credential)

	byID, err := s.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	err = s.CreateAccount(ctx, &core.Account{Email: "alice@example.com", Credential: core.FederatedCredential})
	assert.ErrorIs(t, err, core.ErrAccountExists)

	_, err = s.GetAccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrAccountNotFound)

	_, err = s.GetAccountByID(ctx, acc.ID+1000)
	assert.ErrorIs(t, err, core.ErrAccountNotFound)

	fed := &core.Account{Email: "fed@example.com", Credential: core.FederatedCredential}
	require.NoError(t, s.CreateAccount(ctx, fed))
	got, err := s.GetAccountByEmail(ctx, "fed@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsFederated())
}

func testSessions(t *testing.T, s core.StorageAdapter) {
	ctx := context.Background()
	acc := createAccount(t, s, "alice@example.com")
	at := now()

	live := &core.Session{
		ID:        "live",
		AccountID: acc.ID,
		Email:     acc.Email,
		TokenHash: "hash-live",
		IPAddress: "10.0.0.1",
		UserAgent: "test",
		CreatedAt: at,
		ExpiresAt: at.Add(time.Hour),
	}
	stale := &core.Session{
		ID:        "stale",
		AccountID: acc.ID,
		Email:     acc.Email,
		TokenHash: "hash-stale",
		CreatedAt: at.Add(-2 * time.Hour),
		ExpiresAt: at.Add(-time.Hour),
	}
	require.NoError(t, s.CreateSession(ctx, live))
	require.NoError(t, s.CreateSession(ctx, stale))

	got, err := s.GetSessionByHash(ctx, "hash-live")
	require.NoError(t, err)
	assert.Equal(t, "live", got.ID)
	assert.Equal(t, acc.ID, got.AccountID)
	assert.Equal(t, acc.Email, got.Email)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
	assert.WithinDuration(t, live.ExpiresAt, got.ExpiresAt, time.Millisecond)

	_, err = s.GetSessionByHash(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	swept, err := s.DeleteExpiredSessions(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	_, err = s.GetSessionByHash(ctx, "hash-stale")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	require.NoError(t, s.DeleteSessionByHash(ctx, "hash-live"))
	assert.ErrorIs(t, s.DeleteSessionByHash(ctx, "hash-live"), core.ErrSessionNotFound)
}

func testPosts(t *testing.T, s core.StorageAdapter) {
	ctx := context.Background()
	acc := createAccount(t, s, "alice@example.com")
	at := now()

	first := &core.Post{Title: "first", Content: "c1", Author: "A", OwnerAccountID: acc.ID, CreatedAt: at, UpdatedAt: at}
	second := &core.Post{Title: "second", Content: "c2", Author: "A", OwnerAccountID: acc.ID, CreatedAt: at.Add(time.Second), UpdatedAt: at.Add(time.Second)}
	require.NoError(t, s.CreatePost(ctx, second))
	require.NoError(t, s.CreatePost(ctx, first))
	require.NotZero(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)

	posts, err := s.ListPostsByOwner(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "first", posts[0].Title, "posts are ordered by creation time")
	assert.Equal(t, "second", posts[1].Title)

	first.Title = "edited"
	first.Content = "changed"
	first.Author = "B"
	first.UpdatedAt = at.Add(time.Minute)
	require.NoError(t, s.UpdatePost(ctx, first))

	got, err := s.GetPostByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Title)
	assert.Equal(t, "changed", got.Content)
	assert.Equal(t, "B", got.Author)
	assert.WithinDuration(t, at, got.CreatedAt, time.Millisecond)
	assert.WithinDuration(t, at.Add(time.Minute), got.UpdatedAt, time.Millisecond)

	require.NoError(t, s.DeletePost(ctx, first.ID))
	_, err = s.GetPostByID(ctx, first.ID)
	assert.ErrorIs(t, err, core.ErrPostNotFound)
	assert.ErrorIs(t, s.DeletePost(ctx, first.ID), core.ErrPostNotFound)
	assert.ErrorIs(t, s.UpdatePost(ctx, first), core.ErrPostNotFound)

	empty, err := s.ListPostsByOwner(ctx, acc.ID+1000)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testPostOwnership(t *testing.T, s core.StorageAdapter) {
	ctx := context.Background()
	alice := createAccount(t, s, "alice@example.com")
	bob := createAccount(t, s, "bob@example.com")
	at := now()

	post := &core.Post{Title: "mine", OwnerAccountID: alice.ID, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, s.CreatePost(ctx, post))
	require.NoError(t, s.CreatePost(ctx, &core.Post{Title: "his", OwnerAccountID: bob.ID, CreatedAt: at, UpdatedAt: at}))

	post.OwnerAccountID = bob.ID
	post.Title = "renamed"
	require.NoError(t, s.UpdatePost(ctx, post))

	got, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.OwnerAccountID, "update must not move a post to another owner")

	alicePosts, err := s.ListPostsByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, alicePosts, 1)
	assert.Equal(t, "renamed", alicePosts[0].Title)
}
