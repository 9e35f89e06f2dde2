// Package ledger keeps follow and like edges together with the counters
// that summarize them. Every edge mutation and its counter writes commit in
// the same transaction.
package ledger

import (
	"context"
	"errors"

	"Board/api/board"
	"Board/api/identity"
	"Board/api/models"

	"gorm.io/gorm"
)

// Ledger owns Follow and Like edges.
type Ledger struct {
	db    *gorm.DB
	users *identity.Store
	posts *board.Service

	toggleAttempts int
}

func New(db *gorm.DB, users *identity.Store, posts *board.Service) *Ledger {
	return &Ledger{db: db, users: users, posts: posts, toggleAttempts: 3}
}

var (
	errEdgeExists  = errors.New("edge already exists")
	errEdgeMissing = errors.New("edge does not exist")
)

// inTx is the single transaction boundary for edge and counter writes.
func (l *Ledger) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return l.db.WithContext(ctx).Transaction(fn)
}

// applyFollow inserts follower -> following and bumps both counters. The
// unique pair index decides whether the edge is new.
func applyFollow(tx *gorm.DB, followerID, followingID uint) error {
	created, err := models.InsertFollow(tx, followerID, followingID)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errEdgeExists
		}
		return err
	}
	if !created {
		return errEdgeExists
	}
	if err := models.IncrementCounter(tx, &models.User{}, followerID, models.OutgoingFollowsColumn); err != nil {
		return err
	}
	return models.IncrementCounter(tx, &models.User{}, followingID, models.IncomingFollowsColumn)
}

// applyUnfollow removes follower -> following and releases both counters,
// floored at zero.
func applyUnfollow(tx *gorm.DB, followerID, followingID uint) error {
	removed, err := models.DeleteFollow(tx, followerID, followingID)
	if err != nil {
		return err
	}
	if !removed {
		return errEdgeMissing
	}
	if err := models.DecrementCounter(tx, &models.User{}, followerID, models.OutgoingFollowsColumn); err != nil {
		return err
	}
	return models.DecrementCounter(tx, &models.User{}, followingID, models.IncomingFollowsColumn)
}

// applyLikeToggle flips the (user, post) like edge and moves the post's
// likes counter with it. liked reports the resulting state. A concurrent
// toggle that changed the edge first yields errToggleConflict.
func applyLikeToggle(tx *gorm.DB, userID, postID uint) (liked bool, err error) {
	existing, err := models.FindLike(tx, userID, postID)
	switch {
	case err == nil:
		removed, err := models.DeleteLike(tx, existing.ID)
		if err != nil {
			return false, err
		}
		if !removed {
			return false, errToggleConflict
		}
		return false, models.DecrementCounter(tx, &models.Post{}, postID, models.LikesColumn)

	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := models.InsertLike(tx, userID, postID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, errToggleConflict
		}
		if err != nil {
			return false, err
		}
		if !created {
			return false, errToggleConflict
		}
		return true, models.IncrementCounter(tx, &models.Post{}, postID, models.LikesColumn)

	default:
		return false, err
	}
}
