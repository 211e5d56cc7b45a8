package fiber

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/quill"
	"github.com/lborres/quill/adapters/sqlite"
	"github.com/lborres/quill/core"
	"github.com/lborres/quill/pkg/crypto"
)

type e2eEnv struct {
	app   *fiber.App
	store core.StorageAdapter
}

func newE2E(t *testing.T) *e2eEnv {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db))
	store := sqlite.New(db)

	q, err := quill.New(quill.Config{
		Secret:          "01234567890123456789012345678901",
		Database:        store,
		PasswordHasher:  &crypto.Argon2{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		StrictOwnership: true,
	})
	require.NoError(t, err)

	app := fiber.New()
	require.NoError(t, New(app, Options{Auth: q.Auth, Posts: q.Posts}).RegisterRoutes(q.Endpoints))
	return &e2eEnv{app: app, store: store}
}

func credentials(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

func requireRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, location, resp.Header.Get("Location"))
}

func listPosts(t *testing.T, env *e2eEnv, session *http.Cookie) []core.Post {
	t.Helper()
	resp := do(t, env.app, http.MethodGet, "/posts", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var posts []core.Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	return posts
}

// Requirement: a registered account can sign in, create a post and list exactly that post
func TestE2E_RegisterLoginCreateList(t *testing.T) {
	env := newE2E(t)

	resp := do(t, env.app, http.MethodPost, "/register", credentials("a@x.com", "secret1"))
	requireRedirect(t, resp, "/posts")

	resp = do(t, env.app, http.MethodPost, "/login", credentials("a@x.com", "secret1"))
	requireRedirect(t, resp, "/posts")
	session := findCookie(resp, sessionCookie)
	require.NotNil(t, session)
	require.NotEmpty(t, session.Value)

	resp = do(t, env.app, http.MethodPost, "/create/posts", url.Values{"title": {"T"}, "content": {"C"}, "author": {"A"}}, session)
	requireRedirect(t, resp, "/posts")

	account, err := env.store.GetAccountByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)

	posts := listPosts(t, env, session)
	require.Len(t, posts, 1)
	assert.Equal(t, account.ID, posts[0].OwnerAccountID)
	assert.Equal(t, "T", posts[0].Title)
	assert.Equal(t, "A", posts[0].Author)
}

// Requirement: a wrong password establishes no session and anonymous listing redirects
func TestE2E_WrongPasswordEstablishesNoSession(t *testing.T) {
	env := newE2E(t)
	requireRedirect(t, do(t, env.app, http.MethodPost, "/register", credentials("a@x.com", "secret1")), "/posts")

	resp := do(t, env.app, http.MethodPost, "/login", credentials("a@x.com", "wrong"))

	requireRedirect(t, resp, "/login")
	if c := findCookie(resp, sessionCookie); c != nil {
		assert.Empty(t, c.Value)
	}
	requireRedirect(t, do(t, env.app, http.MethodGet, "/posts", nil), "/login")
}

// Requirement: registering an existing email, in any case, redirects to /login
func TestE2E_DuplicateRegistrationRedirectsToLogin(t *testing.T) {
	env := newE2E(t)
	requireRedirect(t, do(t, env.app, http.MethodPost, "/register", credentials("a@x.com", "secret1")), "/posts")

	resp := do(t, env.app, http.MethodPost, "/register", credentials("A@X.com ", "other-pass"))

	requireRedirect(t, resp, "/login")
}

// Requirement: only the owner can edit or delete a post and logout invalidates the token
func TestE2E_OwnershipAndLogout(t *testing.T) {
	env := newE2E(t)

	resp := do(t, env.app, http.MethodPost, "/register", credentials("a@x.com", "secret1"))
	alice := findCookie(resp, sessionCookie)
	require.NotNil(t, alice)
	resp = do(t, env.app, http.MethodPost, "/register", credentials("b@x.com", "secret2"))
	bob := findCookie(resp, sessionCookie)
	require.NotNil(t, bob)

	do(t, env.app, http.MethodPost, "/create/posts", url.Values{"title": {"mine"}}, alice)
	posts := listPosts(t, env, alice)
	require.Len(t, posts, 1)
	id := posts[0].ID

	// Bob sees none of Alice's posts and cannot touch them.
	assert.Empty(t, listPosts(t, env, bob))
	editPath := "/edit/posts/" + strconv.FormatInt(id, 10)
	assert.Equal(t, http.StatusForbidden, do(t, env.app, http.MethodPost, editPath, url.Values{"title": {"stolen"}}, bob).StatusCode)
	assert.Equal(t, http.StatusForbidden, do(t, env.app, http.MethodGet, "/posts/delete/"+strconv.FormatInt(id, 10), nil, bob).StatusCode)

	// Alice edits, keeping ownership.
	requireRedirect(t, do(t, env.app, http.MethodPost, editPath, url.Values{"title": {"edited"}, "content": {"c"}}, alice), "/posts")
	posts = listPosts(t, env, alice)
	require.Len(t, posts, 1)
	assert.Equal(t, "edited", posts[0].Title)
	assert.Equal(t, http.StatusNotFound, do(t, env.app, http.MethodGet, "/edit/999", nil, alice).StatusCode)

	// After logout the old token no longer works.
	requireRedirect(t, do(t, env.app, http.MethodGet, "/logout", nil, alice), "/")
	requireRedirect(t, do(t, env.app, http.MethodGet, "/posts", nil, alice), "/login")
}
