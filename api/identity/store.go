// Package identity owns user accounts: sign-up, credential checks, profile
// edits and account removal.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Board/api/apperr"
	"Board/api/auth"
	"Board/api/cache"
	"Board/api/models"
	"Board/api/security"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const searchLimit = 100

// TokenIssuer is the part of auth.Codec the store needs.
type TokenIssuer interface {
	Issue(p auth.Principal) (string, error)
}

type Store struct {
	db     *gorm.DB
	hasher security.Hasher
	tokens TokenIssuer
}

func NewStore(db *gorm.DB, hasher security.Hasher, tokens TokenIssuer) *Store {
	return &Store{db: db, hasher: hasher, tokens: tokens}
}

// ProfilePatch carries the editable profile fields. Nil means "leave as is".
type ProfilePatch struct {
	Description *string `json:"description"`
	Profile     *string `json:"profile"`
}

func (p ProfilePatch) fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Profile != nil {
		fields["profile"] = strings.TrimSpace(*p.Profile)
	}
	return fields
}

// PrincipalOf derives the request identity from a stored user.
func PrincipalOf(u *models.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Username: u.Username}
}

// SignUp creates an account with zeroed counters. The partial unique index
// on active usernames backs up the lookup when two sign-ups race.
func (s *Store) SignUp(ctx context.Context, username, password string) (*models.User, error) {
	// Usernames are stored byte-for-byte.
	if strings.TrimSpace(username) == "" {
		return nil, apperr.Invalid("username: must not be blank")
	}
	if password == "" {
		return nil, apperr.Invalid("password: must not be blank")
	}

	db := s.db.WithContext(ctx)
	if _, err := models.FindUserByUsername(db, username); err == nil {
		return nil, apperr.UserAlreadyExistsNamed(username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("identity: look up %s: %w", username, err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}

	user, err := models.NewUser(username, digest).SaveUser(db)
	if err != nil {
		if s.lostSignUpRace(db, username, err) {
			return nil, apperr.UserAlreadyExistsNamed(username)
		}
		return nil, fmt.Errorf("identity: insert %s: %w", username, err)
	}
	log.WithField("username", user.Username).Info("user signed up")
	return user, nil
}

func (s *Store) lostSignUpRace(db *gorm.DB, username string, insertErr error) bool {
	if errors.Is(insertErr, gorm.ErrDuplicatedKey) {
		return true
	}
	_, err := models.FindUserByUsername(db, username)
	return err == nil
}

// Authenticate checks credentials and issues an access token. An unknown
// username and a wrong password fail the same way.
func (s *Store) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := models.FindUserByUsername(s.db.WithContext(ctx), username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("identity: look up %s: %w", username, err)
	}
	if !s.hasher.Verify(password, user.Password) {
		return "", apperr.ErrUserNotFound
	}
	token, err := s.tokens.Issue(PrincipalOf(user))
	if err != nil {
		return "", err
	}
	return token, nil
}

// LoadActiveUser fails with UserNotFound when the user is absent or deleted.
func (s *Store) LoadActiveUser(ctx context.Context, username string) (*models.User, error) {
	return loadActive(s.db.WithContext(ctx), username)
}

func loadActive(db *gorm.DB, username string) (*models.User, error) {
	user, err := models.FindUserByUsername(db, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.UserNotFoundNamed(username)
	}
	if err != nil {
		return nil, fmt.Errorf("identity: look up %s: %w", username, err)
	}
	return user, nil
}

func (s *Store) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	users, err := models.SearchUsers(s.db.WithContext(ctx), query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("identity: search users: %w", err)
	}
	return users, nil
}

// UpdateProfile applies patch to username's profile. Only the owner may do it.
func (s *Store) UpdateProfile(ctx context.Context, username string, patch ProfilePatch, actor auth.Principal) (*models.User, error) {
	db := s.db.WithContext(ctx)
	target, err := loadActive(db, username)
	if err != nil {
		return nil, err
	}
	if actor.UserID != target.ID {
		return nil, apperr.ErrNotAuthorized
	}
	fields := patch.fields()
	updated, err := target.UpdateProfile(db, fields)
	if err != nil {
		return nil, fmt.Errorf("identity: update %s: %w", username, err)
	}
	if len(fields) > 0 {
		// Cached posts embed their author.
		s.evictPostsOf(ctx, updated.ID)
	}
	return updated, nil
}

func (s *Store) evictPostsOf(ctx context.Context, userID uint) {
	postIDs, err := models.PostIDsByUser(s.db.WithContext(ctx), userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("could not list posts for cache eviction")
		return
	}
	evictPosts(ctx, postIDs)
}

func evictPosts(ctx context.Context, postIDs []uint) {
	keys := make([]string, len(postIDs))
	for i, id := range postIDs {
		keys[i] = cache.PostKey(id)
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		log.WithError(err).Warn("post cache invalidation failed")
	}
}

// DeleteUser soft-deletes the owner's account and detaches all of its edges
// in one transaction.
func (s *Store) DeleteUser(ctx context.Context, username string, actor auth.Principal) error {
	var likedPostIDs []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := loadActive(tx, username)
		if err != nil {
			return err
		}
		if actor.UserID != target.ID {
			return apperr.ErrNotAuthorized
		}
		if err := tx.Model(&models.Like{}).Where("user_id = ?", target.ID).Pluck("post_id", &likedPostIDs).Error; err != nil {
			return fmt.Errorf("identity: liked posts of %s: %w", username, err)
		}
		if err := models.DetachUser(tx, target.ID); err != nil {
			return fmt.Errorf("identity: detach %s: %w", username, err)
		}
		if err := tx.Delete(&models.User{}, target.ID).Error; err != nil {
			return fmt.Errorf("identity: delete %s: %w", username, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Liked posts had their counters walked down.
	evictPosts(ctx, likedPostIDs)
	log.WithField("username", username).Info("user deleted")
	return nil
}
