// Package board serves posts and their replies.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Board/api/apperr"
	"Board/api/auth"
	"Board/api/cache"
	"Board/api/identity"
	"Board/api/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const listLimit = 100

// PostView is a post as seen by one viewer.
type PostView struct {
	models.Post
	IsLiking bool
}

type Service struct {
	db    *gorm.DB
	users *identity.Store
}

func NewService(db *gorm.DB, users *identity.Store) *Service {
	return &Service{db: db, users: users}
}

// LoadPost reads a live post through the cache.
func (s *Service) LoadPost(ctx context.Context, postID uint) (*models.Post, error) {
	key := cache.PostKey(postID)
	var cached models.Post
	if cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	post, err := models.FindPostByID(s.db.WithContext(ctx), postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.PostNotFoundID(postID)
	}
	if err != nil {
		return nil, fmt.Errorf("board: load post %d: %w", postID, err)
	}
	if err := cache.SetJSON(ctx, key, post, cache.PostTTL); err != nil {
		log.WithError(err).WithField("post_id", postID).Debug("post cache write failed")
	}
	return post, nil
}

// Invalidate drops the cached copy of postID.
func (s *Service) Invalidate(ctx context.Context, postID uint) {
	if err := cache.Delete(ctx, cache.PostKey(postID)); err != nil {
		log.WithError(err).WithField("post_id", postID).Warn("post cache invalidation failed")
	}
}

func (s *Service) GetPost(ctx context.Context, postID uint, viewer auth.Principal) (*PostView, error) {
	post, err := s.LoadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.AnnotatePosts(ctx, []models.Post{*post}, viewer)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) ListPosts(ctx context.Context, viewer auth.Principal) ([]PostView, error) {
	posts, err := models.FindAllPosts(s.db.WithContext(ctx), listLimit)
	if err != nil {
		return nil, fmt.Errorf("board: list posts: %w", err)
	}
	return s.AnnotatePosts(ctx, posts, viewer)
}

func (s *Service) PostsByUser(ctx context.Context, username string, viewer auth.Principal) ([]PostView, error) {
	owner, err := s.users.LoadActiveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	posts, err := models.PostsByUser(s.db.WithContext(ctx), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("board: posts of %s: %w", username, err)
	}
	return s.AnnotatePosts(ctx, posts, viewer)
}

// AnnotatePosts marks the posts the viewer likes.
func (s *Service) AnnotatePosts(ctx context.Context, posts []models.Post, viewer auth.Principal) ([]PostView, error) {
	ids := make([]uint, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := models.LikedAmong(s.db.WithContext(ctx), viewer.UserID, ids)
	if err != nil {
		return nil, fmt.Errorf("board: load likes: %w", err)
	}
	views := make([]PostView, len(posts))
	for i := range posts {
		views[i] = PostView{Post: posts[i], IsLiking: liked[posts[i].ID]}
	}
	return views, nil
}

func (s *Service) CreatePost(ctx context.Context, body string, actor auth.Principal) (*PostView, error) {
	post := models.Post{Body: body, UserID: actor.UserID}
	post.Prepare()
	if err := firstProblem(post.Validate()); err != nil {
		return nil, err
	}
	saved, err := post.SavePost(s.db.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("board: create post: %w", err)
	}
	return &PostView{Post: *saved}, nil
}

func (s *Service) UpdatePost(ctx context.Context, postID uint, body string, actor auth.Principal) (*PostView, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Invalid("body: must not be blank")
	}
	db := s.db.WithContext(ctx)
	post, err := s.ownedPost(db, postID, actor)
	if err != nil {
		return nil, err
	}
	updated, err := post.UpdateBody(db, body)
	if err != nil {
		return nil, fmt.Errorf("board: update post %d: %w", postID, err)
	}
	s.Invalidate(ctx, postID)
	return s.GetPost(ctx, updated.ID, actor)
}

func (s *Service) DeletePost(ctx context.Context, postID uint, actor auth.Principal) error {
	db := s.db.WithContext(ctx)
	post, err := s.ownedPost(db, postID, actor)
	if err != nil {
		return err
	}
	deleted, err := post.DeletePost(db)
	if err != nil {
		return fmt.Errorf("board: delete post %d: %w", postID, err)
	}
	if deleted == 0 {
		return apperr.PostNotFoundID(postID)
	}
	s.Invalidate(ctx, postID)
	return nil
}

func (s *Service) ownedPost(db *gorm.DB, postID uint, actor auth.Principal) (*models.Post, error) {
	post, err := models.FindPostByID(db, postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.PostNotFoundID(postID)
	}
	if err != nil {
		return nil, fmt.Errorf("board: load post %d: %w", postID, err)
	}
	if post.UserID != actor.UserID {
		return nil, apperr.ErrNotAuthorized
	}
	return post, nil
}

func firstProblem(problems map[string]string) error {
	for _, msg := range problems {
		return apperr.Invalid("%s", msg)
	}
	return nil
}
