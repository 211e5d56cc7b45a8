package services

import "github.com/lborres/quill/core"

// Gate decides which posts a principal may touch.
type Gate struct {
	strict bool
}

// NewGate returns a Gate. With strictOwnership false, any authenticated
// principal may mutate any post.
func NewGate(strictOwnership bool) *Gate {
	return &Gate{strict: strictOwnership}
}

// AuthorizeCreate returns the owner id a new post must be stored under.
func (g *Gate) AuthorizeCreate(p *core.Principal) (int64, error) {
	if p == nil {
		return 0, core.ErrNotAuthenticated
	}
	return p.AccountID, nil
}

// AuthorizeList returns the owner id listings are filtered by.
func (g *Gate) AuthorizeList(p *core.Principal) (int64, error) {
	if p == nil {
		return 0, core.ErrNotAuthenticated
	}
	return p.AccountID, nil
}

// AuthorizeMutate reports whether p may read for edit, update or delete post.
func (g *Gate) AuthorizeMutate(p *core.Principal, post *core.Post) error {
	if p == nil {
		return core.ErrNotAuthenticated
	}
	if g.strict && post.OwnerAccountID != p.AccountID {
		return core.ErrForbidden
	}
	return nil
}
