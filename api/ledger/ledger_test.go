package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Board/api/apperr"
	"Board/api/auth"
	"Board/api/board"
	"Board/api/cache"
	"Board/api/identity"
	"Board/api/models"
	"Board/api/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	ledger *Ledger
	users  map[string]auth.Principal
}

func setup(t *testing.T, names ...string) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	codec, err := auth.NewCodec([]byte("ledger-test-secret"), time.Hour)
	require.NoError(t, err)
	store := identity.NewStore(db, testutil.FastHasher(), codec)
	f := fixture{
		db:     db,
		ledger: New(db, store, board.NewService(db, store)),
		users:  make(map[string]auth.Principal),
	}
	for _, name := range names {
		f.users[name] = identity.PrincipalOf(testutil.CreateUser(t, db, name))
	}
	return f
}

func (f fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := models.FindUserByUsername(f.db, name)
	require.NoError(t, err)
	return u
}

// requireCountersMatchEdges recounts every edge table and compares it with
// the stored counters.
func requireCountersMatchEdges(t *testing.T, db *gorm.DB) {
	t.Helper()
	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		var incoming, outgoing int64
		require.NoError(t, db.Model(&models.Follow{}).Where("following_id = ?", u.ID).Count(&incoming).Error)
		require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = ?", u.ID).Count(&outgoing).Error)
		assert.Equal(t, incoming, u.IncomingFollowCount, "followers of %s", u.Username)
		assert.Equal(t, outgoing, u.OutgoingFollowCount, "followings of %s", u.Username)
	}

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		var likes int64
		require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", p.ID).Count(&likes).Error)
		assert.Equal(t, likes, p.LikesCount, "likes of post %d", p.ID)
	}
}

func TestFollowMovesBothCounters(t *testing.T) {
	f := setup(t, "alice", "bob")
	ctx := context.Background()
	alice, bob := f.users["alice"], f.users["bob"]

	view, err := f.ledger.Follow(ctx, "bob", alice)
	require.NoError(t, err)
	assert.True(t, view.IsFollowing)
	assert.Equal(t, int64(1), view.IncomingFollowCount)

	following, err := f.ledger.IsFollowing(ctx, alice.UserID, bob.UserID)
	require.NoError(t, err)
	assert.True(t, following)
	reverse, err := f.ledger.IsFollowing(ctx, bob.UserID, alice.UserID)
	require.NoError(t, err)
	assert.False(t, reverse)

	assert.Equal(t, int64(1), f.user(t, "bob").IncomingFollowCount)
	assert.Equal(t, int64(0), f.user(t, "bob").OutgoingFollowCount)
	assert.Equal(t, int64(1), f.user(t, "alice").OutgoingFollowCount)
	assert.Equal(t, int64(0), f.user(t, "alice").IncomingFollowCount)
	requireCountersMatchEdges(t, f.db)

	view, err = f.ledger.Unfollow(ctx, "bob", alice)
	require.NoError(t, err)
	assert.False(t, view.IsFollowing)
	assert.Equal(t, int64(0), f.user(t, "bob").IncomingFollowCount)
	assert.Equal(t, int64(0), f.user(t, "alice").OutgoingFollowCount)

	following, err = f.ledger.IsFollowing(ctx, alice.UserID, bob.UserID)
	require.NoError(t, err)
	assert.False(t, following)
	requireCountersMatchEdges(t, f.db)
}

func TestFollowTwiceFails(t *testing.T) {
	f := setup(t, "alice", "bob")
	ctx := context.Background()

	_, err := f.ledger.Follow(ctx, "bob", f.users["alice"])
	require.NoError(t, err)
	_, err = f.ledger.Follow(ctx, "bob", f.users["alice"])
	assert.True(t, errors.Is(err, apperr.ErrFollowAlreadyExists))

	assert.Equal(t, int64(1), f.user(t, "bob").IncomingFollowCount)
	requireCountersMatchEdges(t, f.db)
}

func TestUnfollowWithoutFollowFails(t *testing.T) {
	f := setup(t, "alice", "bob")
	_, err := f.ledger.Unfollow(context.Background(), "bob", f.users["alice"])
	assert.True(t, errors.Is(err, apperr.ErrFollowNotFound))
	assert.Equal(t, int64(0), f.user(t, "bob").IncomingFollowCount)
}

func TestSelfFollowNeverMutates(t *testing.T) {
	f := setup(t, "alice")
	ctx := context.Background()

	_, err := f.ledger.Follow(ctx, "alice", f.users["alice"])
	assert.True(t, errors.Is(err, apperr.ErrSelfFollow))
	_, err = f.ledger.Unfollow(ctx, "alice", f.users["alice"])
	assert.True(t, errors.Is(err, apperr.ErrSelfFollow))

	alice := f.user(t, "alice")
	assert.Equal(t, int64(0), alice.IncomingFollowCount)
	assert.Equal(t, int64(0), alice.OutgoingFollowCount)
	var edges int64
	f.db.Model(&models.Follow{}).Count(&edges)
	assert.Equal(t, int64(0), edges)
}

func TestFollowUnknownUser(t *testing.T) {
	f := setup(t, "alice")
	_, err := f.ledger.Follow(context.Background(), "ghost", f.users["alice"])
	assert.True(t, errors.Is(err, apperr.ErrUserNotFound))
}

func TestUnfollowFloorsDriftedCounters(t *testing.T) {
	f := setup(t, "alice", "bob")
	alice, bob := f.users["alice"], f.users["bob"]

	// An edge whose counters were never written.
	_, err := models.InsertFollow(f.db, alice.UserID, bob.UserID)
	require.NoError(t, err)

	_, err = f.ledger.Unfollow(context.Background(), "bob", alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.user(t, "bob").IncomingFollowCount)
	assert.Equal(t, int64(0), f.user(t, "alice").OutgoingFollowCount)
}

func TestApplyFollowRollsBackWhenCounterRowIsMissing(t *testing.T) {
	f := setup(t, "alice")
	alice := f.users["alice"]

	err := f.ledger.inTx(context.Background(), func(tx *gorm.DB) error {
		return applyFollow(tx, alice.UserID, 9999)
	})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	var edges int64
	f.db.Model(&models.Follow{}).Count(&edges)
	assert.Equal(t, int64(0), edges)
	assert.Equal(t, int64(0), f.user(t, "alice").OutgoingFollowCount)
}

func TestToggleLikeTwiceRestoresCount(t *testing.T) {
	f := setup(t, "alice", "bob")
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.user(t, "alice"), "like me")

	view, err := f.ledger.ToggleLike(ctx, post.ID, f.users["bob"])
	require.NoError(t, err)
	assert.True(t, view.IsLiking)
	assert.Equal(t, int64(1), view.LikesCount)
	requireCountersMatchEdges(t, f.db)

	view, err = f.ledger.ToggleLike(ctx, post.ID, f.users["bob"])
	require.NoError(t, err)
	assert.False(t, view.IsLiking)
	assert.Equal(t, int64(0), view.LikesCount)
	requireCountersMatchEdges(t, f.db)
}

func TestToggleLikeEvictsCachedPost(t *testing.T) {
	mr := testutil.StartRedis(t)
	f := setup(t, "alice", "bob")
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.user(t, "alice"), "like me")
	key := cache.PostKey(post.ID)

	_, err := f.ledger.posts.GetPost(ctx, post.ID, f.users["bob"])
	require.NoError(t, err)
	require.True(t, mr.Exists(key))

	_, err = f.ledger.ToggleLike(ctx, post.ID, f.users["bob"])
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	view, err := f.ledger.posts.GetPost(ctx, post.ID, f.users["alice"])
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.LikesCount)
	assert.True(t, mr.Exists(key))
}

func TestToggleLikeOddTimesLeavesOneEdge(t *testing.T) {
	f := setup(t, "alice", "bob")
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.user(t, "alice"), "like me")

	for i := 0; i < 5; i++ {
		_, err := f.ledger.ToggleLike(ctx, post.ID, f.users["bob"])
		require.NoError(t, err)
	}

	var edges int64
	f.db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", f.users["bob"].UserID, post.ID).Count(&edges)
	assert.Equal(t, int64(1), edges)
	requireCountersMatchEdges(t, f.db)
}

func TestToggleLikeOnMissingPost(t *testing.T) {
	f := setup(t, "bob")
	_, err := f.ledger.ToggleLike(context.Background(), 404, f.users["bob"])
	assert.True(t, errors.Is(err, apperr.ErrPostNotFound))
}

func TestConcurrentTogglesNeverShareDirection(t *testing.T) {
	f := setup(t, "alice", "bob")
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.user(t, "alice"), "race")

	const n = 4
	var wg sync.WaitGroup
	results := make([]bool, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			view, err := f.ledger.ToggleLike(ctx, post.ID, f.users["bob"])
			errs[i] = err
			if err == nil {
				results[i] = view.IsLiking
			}
		}(i)
	}
	wg.Wait()

	likes := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if results[i] {
			likes++
		}
	}
	assert.Equal(t, n/2, likes)
	requireCountersMatchEdges(t, f.db)
}

func TestApplyLikeToggleFollowsStoredEdge(t *testing.T) {
	f := setup(t, "alice", "bob")
	post := testutil.CreatePost(t, f.db, f.user(t, "alice"), "race")
	bob := f.users["bob"]

	// Another request inserted the edge first; a second insert is a no-op.
	created, err := models.InsertLike(f.db, bob.UserID, post.ID)
	require.NoError(t, err)
	require.True(t, created)
	created, err = models.InsertLike(f.db, bob.UserID, post.ID)
	require.NoError(t, err)
	assert.False(t, created)

	// The retry observes the edge and removes it, flooring the counter.
	liked, err := applyLikeToggle(f.db, bob.UserID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	reloaded, err := models.FindPostByID(f.db, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.LikesCount)
	_, err = models.FindLike(f.db, bob.UserID, post.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// onLikeCreate runs fn right before gorm inserts into likes.
func onLikeCreate(t *testing.T, db *gorm.DB, fn func(tx *gorm.DB)) {
	t.Helper()
	const name = "ledger_test:before_like_create"
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == "likes" {
			fn(tx)
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Create().Remove(name) })
}

// onLikeQuery runs fn right before gorm reads from likes.
func onLikeQuery(t *testing.T, db *gorm.DB, fn func(tx *gorm.DB)) {
	t.Helper()
	const name = "ledger_test:before_like_query"
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == "likes" {
			fn(tx)
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Query().Remove(name) })
}

func TestToggleLikeRetriesAfterLosingInsertRace(t *testing.T) {
	f := setup(t, "alice", "bob")
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.user(t, "alice"), "race")
	bob := f.users["bob"]

	// The first attempt saw no edge, then lost its insert to a concurrent
	// toggle by the same user.
	creates := 0
	onLikeCreate(t, f.db, func(tx *gorm.DB) {
		creates++
		if creates == 1 {
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	// The concurrent toggle's like is in place when the retry reads.
	reads := 0
	onLikeQuery(t, f.db, func(tx *gorm.DB) {
		reads++
		if reads != 2 {
			return
		}
		rival := tx.Session(&gorm.Session{NewDB: true})
		created, err := models.InsertLike(rival, bob.UserID, post.ID)
		require.NoError(t, err)
		require.True(t, created)
		require.NoError(t, models.IncrementCounter(rival, &models.Post{}, post.ID, models.LikesColumn))
	})

	view, err := f.ledger.ToggleLike(ctx, post.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, reads, "one conflicted attempt and one retry")
	assert.False(t, view.IsLiking)
	assert.Equal(t, int64(0), view.LikesCount)

	_, err = models.FindLike(f.db, bob.UserID, post.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	requireCountersMatchEdges(t, f.db)
}

func TestToggleLikeGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := setup(t, "alice", "bob")
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.user(t, "alice"), "contended")

	creates := 0
	onLikeCreate(t, f.db, func(tx *gorm.DB) {
		creates++
		_ = tx.AddError(gorm.ErrDuplicatedKey)
	})

	_, err := f.ledger.ToggleLike(ctx, post.ID, f.users["bob"])
	require.Error(t, err)
	assert.True(t, errors.Is(err, errToggleConflict))
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
	assert.Equal(t, f.ledger.toggleAttempts, creates)

	var edges int64
	require.NoError(t, f.db.Model(&models.Like{}).Count(&edges).Error)
	assert.Equal(t, int64(0), edges)
	reloaded, err := models.FindPostByID(f.db, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.LikesCount)
	requireCountersMatchEdges(t, f.db)
}

func TestFollowerProjections(t *testing.T) {
	f := setup(t, "alice", "bob", "carol")
	ctx := context.Background()
	alice, bob, carol := f.users["alice"], f.users["bob"], f.users["carol"]

	_, err := f.ledger.Follow(ctx, "alice", bob)
	require.NoError(t, err)
	_, err = f.ledger.Follow(ctx, "alice", carol)
	require.NoError(t, err)
	_, err = f.ledger.Follow(ctx, "carol", alice)
	require.NoError(t, err)

	followers, err := f.ledger.Followers(ctx, "alice", alice)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	byName := map[string]FollowerView{}
	for _, v := range followers {
		byName[v.Username] = v
	}
	assert.False(t, byName["bob"].IsFollowing)
	assert.True(t, byName["carol"].IsFollowing)
	assert.False(t, byName["carol"].FollowedAt.IsZero())

	// The viewer's own row is never annotated as followed.
	followings, err := f.ledger.Followings(ctx, "carol", alice)
	require.NoError(t, err)
	require.Len(t, followings, 1)
	assert.Equal(t, "alice", followings[0].Username)
	assert.False(t, followings[0].IsFollowing)

	seenByBob, err := f.ledger.GetUser(ctx, "alice", bob)
	require.NoError(t, err)
	assert.True(t, seenByBob.IsFollowing)
	assert.Equal(t, int64(2), seenByBob.IncomingFollowCount)

	search, err := f.ledger.SearchUsers(ctx, "", bob)
	require.NoError(t, err)
	require.Len(t, search, 3)
	for _, v := range search {
		assert.Equal(t, v.Username == "alice", v.IsFollowing, v.Username)
	}

	_, err = f.ledger.Followers(ctx, "ghost", alice)
	assert.True(t, errors.Is(err, apperr.ErrUserNotFound))
}

func TestLikedUsers(t *testing.T) {
	f := setup(t, "alice", "bob", "carol")
	ctx := context.Background()
	aliceUser := f.user(t, "alice")
	first := testutil.CreatePost(t, f.db, aliceUser, "first")
	second := testutil.CreatePost(t, f.db, aliceUser, "second")

	_, err := f.ledger.ToggleLike(ctx, first.ID, f.users["bob"])
	require.NoError(t, err)
	_, err = f.ledger.ToggleLike(ctx, second.ID, f.users["carol"])
	require.NoError(t, err)
	_, err = f.ledger.Follow(ctx, "carol", f.users["bob"])
	require.NoError(t, err)

	byPost, err := f.ledger.LikedUsersByPost(ctx, first.ID, f.users["carol"])
	require.NoError(t, err)
	require.Len(t, byPost, 1)
	assert.Equal(t, "bob", byPost[0].Username)
	assert.Equal(t, first.ID, byPost[0].PostID)

	byUser, err := f.ledger.LikedUsersByUser(ctx, "alice", f.users["bob"])
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	for _, v := range byUser {
		switch v.Username {
		case "carol":
			assert.True(t, v.IsFollowing)
			assert.Equal(t, second.ID, v.PostID)
		case "bob":
			assert.False(t, v.IsFollowing)
		default:
			t.Fatalf("unexpected liker %s", v.Username)
		}
	}

	_, err = f.ledger.LikedUsersByPost(ctx, 404, f.users["bob"])
	assert.True(t, errors.Is(err, apperr.ErrPostNotFound))
}
