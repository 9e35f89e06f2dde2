package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Board/api/apperr"
	"Board/api/auth"
	"Board/api/models"
	"Board/api/monitoring"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserView is a user as seen by one viewer.
type UserView struct {
	models.User
	IsFollowing bool
}

// FollowerView is a follower together with when the edge was created.
type FollowerView struct {
	UserView
	FollowedAt time.Time
}

// Follow makes actor follow targetUsername and returns the target as the
// actor now sees it.
func (l *Ledger) Follow(ctx context.Context, targetUsername string, actor auth.Principal) (*UserView, error) {
	target, err := l.users.LoadActiveUser(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.UserID {
		return nil, apperr.ErrSelfFollow
	}

	err = l.inTx(ctx, func(tx *gorm.DB) error {
		return applyFollow(tx, actor.UserID, target.ID)
	})
	switch {
	case errors.Is(err, errEdgeExists):
		return nil, apperr.FollowAlreadyExistsBetween(actor.Username, target.Username)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("ledger: follow %s: %w", targetUsername, err)
	}

	monitoring.FollowActions.WithLabelValues("follow").Inc()
	log.WithFields(log.Fields{"follower": actor.Username, "following": target.Username}).Debug("follow applied")
	return l.reloadTarget(ctx, target.ID, true)
}

// Unfollow removes the actor's edge to targetUsername.
func (l *Ledger) Unfollow(ctx context.Context, targetUsername string, actor auth.Principal) (*UserView, error) {
	target, err := l.users.LoadActiveUser(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.UserID {
		return nil, apperr.ErrSelfFollow
	}

	err = l.inTx(ctx, func(tx *gorm.DB) error {
		return applyUnfollow(tx, actor.UserID, target.ID)
	})
	switch {
	case errors.Is(err, errEdgeMissing):
		return nil, apperr.FollowNotFoundBetween(actor.Username, target.Username)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("ledger: unfollow %s: %w", targetUsername, err)
	}

	monitoring.FollowActions.WithLabelValues("unfollow").Inc()
	log.WithFields(log.Fields{"follower": actor.Username, "following": target.Username}).Debug("unfollow applied")
	return l.reloadTarget(ctx, target.ID, false)
}

func (l *Ledger) reloadTarget(ctx context.Context, targetID uint, following bool) (*UserView, error) {
	target, err := models.FindUserByID(l.db.WithContext(ctx), targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: reload user %d: %w", targetID, err)
	}
	return &UserView{User: *target, IsFollowing: following}, nil
}

// IsFollowing reports whether a follows b.
func (l *Ledger) IsFollowing(ctx context.Context, a, b uint) (bool, error) {
	if a == 0 || a == b {
		return false, nil
	}
	return models.FollowExists(l.db.WithContext(ctx), a, b)
}

// GetUser loads username annotated for viewer.
func (l *Ledger) GetUser(ctx context.Context, username string, viewer auth.Principal) (*UserView, error) {
	user, err := l.users.LoadActiveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	following, err := l.IsFollowing(ctx, viewer.UserID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("ledger: relationship with %s: %w", username, err)
	}
	return &UserView{User: *user, IsFollowing: following}, nil
}

func (l *Ledger) SearchUsers(ctx context.Context, query string, viewer auth.Principal) ([]UserView, error) {
	users, err := l.users.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	return l.AnnotateUsers(ctx, users, viewer)
}

// AnnotateUsers sets IsFollowing on every user relative to viewer. The
// viewer's own row is always false.
func (l *Ledger) AnnotateUsers(ctx context.Context, users []models.User, viewer auth.Principal) ([]UserView, error) {
	ids := make([]uint, 0, len(users))
	for i := range users {
		if users[i].ID != viewer.UserID {
			ids = append(ids, users[i].ID)
		}
	}
	followed, err := models.FollowedAmong(l.db.WithContext(ctx), viewer.UserID, ids)
	if err != nil {
		return nil, fmt.Errorf("ledger: load relationships: %w", err)
	}
	views := make([]UserView, len(users))
	for i := range users {
		views[i] = UserView{User: users[i], IsFollowing: followed[users[i].ID]}
	}
	return views, nil
}

// Followers lists who follows username, newest edge first.
func (l *Ledger) Followers(ctx context.Context, username string, viewer auth.Principal) ([]FollowerView, error) {
	user, err := l.users.LoadActiveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	follows, err := models.FollowersOf(l.db.WithContext(ctx), user.ID)
	if err != nil {
		return nil, fmt.Errorf("ledger: followers of %s: %w", username, err)
	}

	users := make([]models.User, len(follows))
	for i := range follows {
		users[i] = follows[i].Follower
	}
	annotated, err := l.AnnotateUsers(ctx, users, viewer)
	if err != nil {
		return nil, err
	}
	views := make([]FollowerView, len(follows))
	for i := range follows {
		views[i] = FollowerView{UserView: annotated[i], FollowedAt: follows[i].CreatedAt}
	}
	return views, nil
}

// Followings lists who username follows, newest edge first.
func (l *Ledger) Followings(ctx context.Context, username string, viewer auth.Principal) ([]UserView, error) {
	user, err := l.users.LoadActiveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	follows, err := models.FollowingsOf(l.db.WithContext(ctx), user.ID)
	if err != nil {
		return nil, fmt.Errorf("ledger: followings of %s: %w", username, err)
	}
	users := make([]models.User, len(follows))
	for i := range follows {
		users[i] = follows[i].Following
	}
	return l.AnnotateUsers(ctx, users, viewer)
}
