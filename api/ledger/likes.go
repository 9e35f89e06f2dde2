package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Board/api/apperr"
	"Board/api/auth"
	"Board/api/board"
	"Board/api/models"
	"Board/api/monitoring"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var errToggleConflict = errors.New("like edge changed concurrently")

// LikedUserView is a user who likes a post.
type LikedUserView struct {
	UserView
	PostID  uint
	LikedAt time.Time
}

// ToggleLike likes the post if the actor does not like it yet, and unlikes it
// otherwise. A toggle that loses a race against a concurrent one is retried
// against the new state.
func (l *Ledger) ToggleLike(ctx context.Context, postID uint, actor auth.Principal) (*board.PostView, error) {
	if _, err := l.posts.LoadPost(ctx, postID); err != nil {
		return nil, err
	}

	var liked bool
	var err error
	for attempt := 0; attempt < l.toggleAttempts; attempt++ {
		err = l.inTx(ctx, func(tx *gorm.DB) error {
			var txErr error
			liked, txErr = applyLikeToggle(tx, actor.UserID, postID)
			return txErr
		})
		if !errors.Is(err, errToggleConflict) {
			break
		}
		log.WithFields(log.Fields{"post_id": postID, "user": actor.Username, "attempt": attempt + 1}).Debug("like toggle conflicted, retrying")
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.PostNotFoundID(postID)
	case err != nil:
		return nil, fmt.Errorf("ledger: toggle like on post %d: %w", postID, err)
	}

	l.posts.Invalidate(ctx, postID)
	direction := "unlike"
	if liked {
		direction = "like"
	}
	monitoring.LikeToggles.WithLabelValues(direction).Inc()

	post, err := models.FindPostByID(l.db.WithContext(ctx), postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.PostNotFoundID(postID)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: reload post %d: %w", postID, err)
	}
	return &board.PostView{Post: *post, IsLiking: liked}, nil
}

// LikedUsersByPost lists who likes postID, newest first.
func (l *Ledger) LikedUsersByPost(ctx context.Context, postID uint, viewer auth.Principal) ([]LikedUserView, error) {
	if _, err := l.posts.LoadPost(ctx, postID); err != nil {
		return nil, err
	}
	return l.likedUsers(ctx, []uint{postID}, viewer)
}

// LikedUsersByUser lists likes across every post username owns.
func (l *Ledger) LikedUsersByUser(ctx context.Context, username string, viewer auth.Principal) ([]LikedUserView, error) {
	owner, err := l.users.LoadActiveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	postIDs, err := models.PostIDsByUser(l.db.WithContext(ctx), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("ledger: posts of %s: %w", username, err)
	}
	return l.likedUsers(ctx, postIDs, viewer)
}

func (l *Ledger) likedUsers(ctx context.Context, postIDs []uint, viewer auth.Principal) ([]LikedUserView, error) {
	likes, err := models.LikesOfPosts(l.db.WithContext(ctx), postIDs)
	if err != nil {
		return nil, fmt.Errorf("ledger: load likes: %w", err)
	}
	users := make([]models.User, len(likes))
	for i := range likes {
		users[i] = likes[i].User
	}
	annotated, err := l.AnnotateUsers(ctx, users, viewer)
	if err != nil {
		return nil, err
	}
	views := make([]LikedUserView, len(likes))
	for i := range likes {
		views[i] = LikedUserView{UserView: annotated[i], PostID: likes[i].PostID, LikedAt: likes[i].CreatedAt}
	}
	return views, nil
}
