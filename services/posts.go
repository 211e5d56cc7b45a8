package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lborres/quill/core"
)

// PostService runs post CRUD behind the Gate.
type PostService struct {
	posts   core.PostStorage
	gate    *Gate
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// Ensure PostService implements PostHandler
var _ core.PostHandler = (*PostService)(nil)

func NewPostService(posts core.PostStorage, gate *Gate, timeout time.Duration, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{
		posts:   posts,
		gate:    gate,
		timeout: timeout,
		logger:  logger.Named("posts"),
		now:     time.Now,
	}
}

func (s *PostService) Create(ctx context.Context, p *core.Principal, input core.PostInput) (*core.Post, error) {
	owner, err := s.gate.AuthorizeCreate(p)
	if err != nil {
		return nil, err
	}

	now := s.now()
	post := &core.Post{
		Title:          input.Title,
		Content:        input.Content,
		Author:         input.Author,
		OwnerAccountID: owner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	sctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.posts.CreatePost(sctx, post); err != nil {
		return nil, storeError("failed to create post", err)
	}

	s.logger.Debug("post created", zap.Int64("post_id", post.ID), zap.Int64("owner", owner))
	return post, nil
}

// List returns the principal's own posts, oldest first.
func (s *PostService) List(ctx context.Context, p *core.Principal) ([]*core.Post, error) {
	owner, err := s.gate.AuthorizeList(p)
	if err != nil {
		return nil, err
	}

	sctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	posts, err := s.posts.ListPostsByOwner(sctx, owner)
	if err != nil {
		return nil, storeError("failed to list posts", err)
	}

	owned := make([]*core.Post, 0, len(posts))
	for _, post := range posts {
		if post.OwnerAccountID == owner {
			owned = append(owned, post)
		}
	}
	return owned, nil
}

func (s *PostService) Get(ctx context.Context, p *core.Principal, id int64) (*core.Post, error) {
	if p == nil {
		return nil, core.ErrNotAuthenticated
	}

	sctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return s.load(sctx, p, id)
}

// Update rewrites title, content and author. Owner and CreatedAt never change.
func (s *PostService) Update(ctx context.Context, p *core.Principal, id int64, input core.PostInput) (*core.Post, error) {
	if p == nil {
		return nil, core.ErrNotAuthenticated
	}

	lctx, cancel := withTimeout(ctx, s.timeout)
	post, err := s.load(lctx, p, id)
	cancel()
	if err != nil {
		return nil, err
	}

	post.Title = input.Title
	post.Content = input.Content
	post.Author = input.Author
	post.UpdatedAt = s.now()

	wctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.posts.UpdatePost(wctx, post); err != nil {
		if errors.Is(err, core.ErrPostNotFound) {
			return nil, err
		}
		return nil, storeError("failed to update post", err)
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, p *core.Principal, id int64) error {
	if p == nil {
		return core.ErrNotAuthenticated
	}

	lctx, cancel := withTimeout(ctx, s.timeout)
	_, err := s.load(lctx, p, id)
	cancel()
	if err != nil {
		return err
	}

	wctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.posts.DeletePost(wctx, id); err != nil {
		if errors.Is(err, core.ErrPostNotFound) {
			return err
		}
		return storeError("failed to delete post", err)
	}

	s.logger.Debug("post deleted", zap.Int64("post_id", id), zap.Int64("account_id", p.AccountID))
	return nil
}

// load fetches post id and checks the principal may mutate it.
func (s *PostService) load(ctx context.Context, p *core.Principal, id int64) (*core.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrPostNotFound) {
			return nil, err
		}
		return nil, storeError("failed to get post", err)
	}
	if err := s.gate.AuthorizeMutate(p, post); err != nil {
		return nil, err
	}
	return post, nil
}
