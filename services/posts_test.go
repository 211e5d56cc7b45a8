package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lborres/quill/core"
)

var bob = &core.Principal{AccountID: 2, Email: "bob@example.com"}

func newTestPostService(storage *FakeStorageProvider, strict bool) *PostService {
	return NewPostService(storage, NewGate(strict), time.Second, nil)
}

func TestGate(t *testing.T) {
	post := &core.Post{ID: 10, OwnerAccountID: alice.AccountID}

	tests := []struct {
		name    string
		strict  bool
		p       *core.Principal
		wantErr error
	}{
		{name: "owner strict", strict: true, p: alice},
		{name: "stranger strict", strict: true, p: bob, wantErr: core.ErrForbidden},
		{name: "stranger lenient", strict: false, p: bob},
		{name: "anonymous", strict: false, p: nil, wantErr: core.ErrNotAuthenticated},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			gate := NewGate(test.strict)

			err := gate.AuthorizeMutate(test.p, post)

			if !errors.Is(err, test.wantErr) {
				t.Errorf("AuthorizeMutate() error = %v, want %v", err, test.wantErr)
			}
		})
	}

	if _, err := NewGate(true).AuthorizeCreate(nil); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("AuthorizeCreate(nil) error = %v", err)
	}
	if owner, err := NewGate(false).AuthorizeList(bob); err != nil || owner != bob.AccountID {
		t.Errorf("AuthorizeList(bob) = %d, %v", owner, err)
	}
}

// Requirement: created posts are owned by the creating principal, whatever the author says.
func TestPostService_Create(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	service := newTestPostService(storage, true)

	// Act
	post, err := service.Create(context.Background(), alice, core.PostInput{Title: "t", Content: "c", Author: "Bob"})

	// Assert
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if post.OwnerAccountID != alice.AccountID {
		t.Errorf("OwnerAccountID = %d, want %d", post.OwnerAccountID, alice.AccountID)
	}
	if post.Author != "Bob" || post.CreatedAt.IsZero() || !post.CreatedAt.Equal(post.UpdatedAt) {
		t.Errorf("unexpected post %+v", post)
	}

	if _, err := service.Create(context.Background(), nil, core.PostInput{Title: "x"}); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Errorf("Create(nil) error = %v, want ErrNotAuthenticated", err)
	}
}

// Requirement: listing never returns another account's posts.
func TestPostService_List(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	service := newTestPostService(storage, false)
	ctx := context.Background()
	for _, title := range []string{"a1", "a2"} {
		if _, err := service.Create(ctx, alice, core.PostInput{Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := service.Create(ctx, bob, core.PostInput{Title: "b1"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		p          *core.Principal
		wantTitles []string
		wantErr    error
	}{
		{name: "alice sees her posts", p: alice, wantTitles: []string{"a1", "a2"}},
		{name: "bob sees his post", p: bob, wantTitles: []string{"b1"}},
		{name: "stranger sees nothing", p: &core.Principal{AccountID: 99}, wantTitles: []string{}},
		{name: "anonymous", p: nil, wantErr: core.ErrNotAuthenticated},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			posts, err := service.List(ctx, test.p)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("List() error = %v, want %v", err, test.wantErr)
			}
			if len(posts) != len(test.wantTitles) {
				t.Fatalf("List() returned %d posts, want %d", len(posts), len(test.wantTitles))
			}
			for i, post := range posts {
				if post.Title != test.wantTitles[i] || post.OwnerAccountID != test.p.AccountID {
					t.Errorf("List()[%d] = %+v", i, post)
				}
			}
		})
	}
}

// Requirement: edit and delete follow the ownership policy and never change the owner.
func TestPostService_Mutate(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		actor   *core.Principal
		id      func(int64) int64
		wantErr error
	}{
		{name: "owner edits", strict: true, actor: alice},
		{name: "stranger strict", strict: true, actor: bob, wantErr: core.ErrForbidden},
		{name: "stranger lenient", strict: false, actor: bob},
		{name: "missing post", strict: true, actor: alice, id: func(int64) int64 { return 404 }, wantErr: core.ErrPostNotFound},
		{name: "anonymous", strict: false, actor: nil, wantErr: core.ErrNotAuthenticated},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorageProvider()
			service := newTestPostService(storage, test.strict)
			ctx := context.Background()
			post, err := service.Create(ctx, alice, core.PostInput{Title: "before", Content: "c", Author: "A"})
			if err != nil {
				t.Fatal(err)
			}
			id := post.ID
			if test.id != nil {
				id = test.id(id)
			}

			// Act
			updated, updateErr := service.Update(ctx, test.actor, id, core.PostInput{Title: "after", Content: "c2", Author: "B"})
			_, getErr := service.Get(ctx, test.actor, id)
			deleteErr := service.Delete(ctx, test.actor, id)

			// Assert
			for op, err := range map[string]error{"Update": updateErr, "Get": getErr, "Delete": deleteErr} {
				if !errors.Is(err, test.wantErr) {
					t.Errorf("%s() error = %v, want %v", op, err, test.wantErr)
				}
			}
			if test.wantErr != nil {
				stored, err := storage.GetPostByID(ctx, post.ID)
				if err != nil || stored.Title != "before" {
					t.Errorf("rejected mutation changed the post: %+v, %v", stored, err)
				}
				return
			}
			if updated.OwnerAccountID != alice.AccountID || !updated.CreatedAt.Equal(post.CreatedAt) {
				t.Errorf("Update() changed immutable fields: %+v", updated)
			}
			if updated.Title != "after" || updated.Author != "B" {
				t.Errorf("Update() = %+v", updated)
			}
			if _, err := storage.GetPostByID(ctx, post.ID); !errors.Is(err, core.ErrPostNotFound) {
				t.Errorf("post still present after Delete(): %v", err)
			}
		})
	}
}

func TestPostService_StoreTimeout(t *testing.T) {
	storage := NewFakeStorageProvider()
	storage.hang = true
	service := NewPostService(storage, NewGate(true), 10*time.Millisecond, nil)

	_, err := service.List(context.Background(), alice)

	if !errors.Is(err, core.ErrTimeout) {
		t.Errorf("List() error = %v, want ErrTimeout", err)
	}
}

// Requirement: each store call in an edit or delete gets the full store timeout.
func TestPostService_MutateBudgetPerStoreCall(t *testing.T) {
	// Arrange
	storage := NewFakeStorageProvider()
	timeout := 100 * time.Millisecond
	service := NewPostService(storage, NewGate(true), timeout, nil)
	ctx := context.Background()
	post, err := service.Create(ctx, alice, core.PostInput{Title: "before"})
	if err != nil {
		t.Fatal(err)
	}
	storage.mu.Lock()
	storage.delay = 60 * time.Millisecond
	storage.mu.Unlock()

	// Act
	updated, updateErr := service.Update(ctx, alice, post.ID, core.PostInput{Title: "after"})
	deleteErr := service.Delete(ctx, alice, post.ID)

	// Assert
	if updateErr != nil {
		t.Errorf("Update() error = %v", updateErr)
	} else if updated.Title != "after" {
		t.Errorf("Update() title = %q, want after", updated.Title)
	}
	if deleteErr != nil {
		t.Errorf("Delete() error = %v", deleteErr)
	}
}
