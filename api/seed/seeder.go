package seed

import (
	"context"
	"errors"
	"fmt"

	"Board/api/apperr"
	"Board/api/board"
	"Board/api/identity"
	"Board/api/ledger"

	log "github.com/sirupsen/logrus"
)

var users = []struct {
	Username string
	Password string
}{
	{Username: "steven", Password: "password"},
	{Username: "martin", Password: "password"},
}

var posts = []string{
	"Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
	"Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.",
}

// Load creates two demo users who follow each other, one post each and a
// like on every post by the other user. Running it again is a no-op.
func Load(store *identity.Store, edges *ledger.Ledger, posting *board.Service) error {
	ctx := context.Background()

	for _, u := range users {
		_, err := store.SignUp(ctx, u.Username, u.Password)
		if errors.Is(err, apperr.ErrUserAlreadyExists) {
			log.WithField("username", u.Username).Info("seed: user exists, skipping demo data")
			return nil
		}
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}

	for i, u := range users {
		author, err := store.LoadActiveUser(ctx, u.Username)
		if err != nil {
			return err
		}
		other := users[(i+1)%len(users)]
		otherUser, err := store.LoadActiveUser(ctx, other.Username)
		if err != nil {
			return err
		}

		post, err := posting.CreatePost(ctx, posts[i], identity.PrincipalOf(author))
		if err != nil {
			return fmt.Errorf("seed post for %s: %w", u.Username, err)
		}
		if _, err := edges.Follow(ctx, other.Username, identity.PrincipalOf(author)); err != nil {
			return fmt.Errorf("seed follow %s -> %s: %w", u.Username, other.Username, err)
		}
		if _, err := edges.ToggleLike(ctx, post.ID, identity.PrincipalOf(otherUser)); err != nil {
			return fmt.Errorf("seed like by %s: %w", other.Username, err)
		}
	}
	log.Info("seed: demo data loaded")
	return nil
}
