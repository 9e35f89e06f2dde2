package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Board/api/apperr"
	"Board/api/auth"
	"Board/api/models"

	"gorm.io/gorm"
)

func (s *Service) ListReplies(ctx context.Context, postID uint) ([]models.Reply, error) {
	if _, err := s.LoadPost(ctx, postID); err != nil {
		return nil, err
	}
	replies, err := models.RepliesOfPost(s.db.WithContext(ctx), postID)
	if err != nil {
		return nil, fmt.Errorf("board: replies of post %d: %w", postID, err)
	}
	return replies, nil
}

func (s *Service) RepliesByUser(ctx context.Context, username string) ([]models.Reply, error) {
	owner, err := s.users.LoadActiveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	replies, err := models.RepliesByUser(s.db.WithContext(ctx), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("board: replies of %s: %w", username, err)
	}
	return replies, nil
}

// CreateReply stores the reply and bumps the post's replies counter in one
// transaction.
func (s *Service) CreateReply(ctx context.Context, postID uint, body string, actor auth.Principal) (*models.Reply, error) {
	reply := models.Reply{Body: body, UserID: actor.UserID, PostID: postID}
	reply.Prepare()
	if err := firstProblem(reply.Validate()); err != nil {
		return nil, err
	}

	var saved *models.Reply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.IncrementCounter(tx, &models.Post{}, postID, models.RepliesColumn); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.PostNotFoundID(postID)
			}
			return err
		}
		var err error
		saved, err = reply.SaveReply(tx)
		return err
	})
	if err != nil {
		return nil, wrapBoardErr(err, "create reply on post %d", postID)
	}
	s.Invalidate(ctx, postID)
	return saved, nil
}

func (s *Service) UpdateReply(ctx context.Context, postID, replyID uint, body string, actor auth.Principal) (*models.Reply, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Invalid("body: must not be blank")
	}
	db := s.db.WithContext(ctx)
	reply, err := ownedReply(db, postID, replyID, actor)
	if err != nil {
		return nil, err
	}
	updated, err := reply.UpdateBody(db, body)
	if err != nil {
		return nil, fmt.Errorf("board: update reply %d: %w", replyID, err)
	}
	return updated, nil
}

// DeleteReply soft-deletes the reply and releases the post's replies counter
// in one transaction.
func (s *Service) DeleteReply(ctx context.Context, postID, replyID uint, actor auth.Principal) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reply, err := ownedReply(tx, postID, replyID, actor)
		if err != nil {
			return err
		}
		removed, err := reply.DeleteReply(tx)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.ReplyNotFoundID(replyID)
		}
		err = models.DecrementCounter(tx, &models.Post{}, postID, models.RepliesColumn)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The post is gone; the reply still goes with it.
			return nil
		}
		return err
	})
	if err != nil {
		return wrapBoardErr(err, "delete reply %d", replyID)
	}
	s.Invalidate(ctx, postID)
	return nil
}

func ownedReply(db *gorm.DB, postID, replyID uint, actor auth.Principal) (*models.Reply, error) {
	reply, err := models.FindReply(db, postID, replyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ReplyNotFoundID(replyID)
	}
	if err != nil {
		return nil, fmt.Errorf("board: load reply %d: %w", replyID, err)
	}
	if reply.UserID != actor.UserID {
		return nil, apperr.ErrNotAuthorized
	}
	return reply, nil
}

// wrapBoardErr keeps client-facing errors as they are and wraps the rest.
func wrapBoardErr(err error, format string, args ...interface{}) error {
	if apperr.KindOf(err) != apperr.Internal {
		return err
	}
	return fmt.Errorf("board: "+format+": %w", append(args, err)...)
}
