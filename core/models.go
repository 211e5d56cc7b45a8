package core

import "time"

// FederatedCredential is stored in place of a password hash for accounts
// provisioned through identity federation. Local sign-in is disabled for them.
const FederatedCredential = "federated"

// Account is the identity record behind a principal.
//
// Email is the only external identity key. Accounts are created once and never
// mutated by this service.
type Account struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Credential string    `json:"-"` // Never expose in JSON
	CreatedAt  time.Time `json:"createdAt"`
}

// IsFederated reports whether local password sign-in is disabled for the account.
func (a *Account) IsFederated() bool {
	return a.Credential == FederatedCredential
}

// Principal returns the minimal authenticated view of the account.
func (a *Account) Principal() *Principal {
	return &Principal{AccountID: a.ID, Email: a.Email}
}

// Principal is the currently authenticated actor of a single request.
type Principal struct {
	AccountID int64  `json:"accountId"`
	Email     string `json:"email"`
}

// Session represents an active login session
//
// Only the hash of the client token is stored. The session carries the
// principal it was established for and nothing else from the account row.
type Session struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"accountId"`
	Email     string    `json:"email"`
	TokenHash string    `json:"-"` // Never expose in JSON (security!)
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Principal returns the principal the session was established for.
func (s *Session) Principal() *Principal {
	return &Principal{AccountID: s.AccountID, Email: s.Email}
}

// Post is a blog entry owned by exactly one account.
type Post struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Author         string    `json:"author"` // display name, unrelated to the owner
	OwnerAccountID int64     `json:"ownerAccountId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PostInput carries the user-editable fields of a post.
type PostInput struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
	Author  string `json:"author" form:"author"`
}
