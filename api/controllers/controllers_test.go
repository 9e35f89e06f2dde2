package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"Board/api/auth"
	"Board/api/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status   int             `json:"status"`
	Response json.RawMessage `json:"response"`
	Error    string          `json:"error"`
}

type harness struct {
	t      *testing.T
	server *Server
	addr   string
}

// Each harness gets its own client address so the per-IP limiters start fresh.
var harnessSeq int32

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	codec, err := auth.NewCodec([]byte("controllers-test-secret"), time.Hour)
	require.NoError(t, err)
	server := &Server{}
	server.Wire(testutil.OpenDB(t), codec, testutil.FastHasher(), []string{"http://localhost:3000"})
	n := atomic.AddInt32(&harnessSeq, 1)
	return &harness{t: t, server: server, addr: "192.0.2." + strconv.Itoa(int(n)) + ":4000"}
}

func (h *harness) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = h.addr
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.server.Router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (h *harness) signUpAndLogin(username string) string {
	h.t.Helper()
	w, _ := h.do(http.MethodPost, "/api/v1/users", "", CredentialsRequest{Username: username, Password: "password123"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())

	w, env := h.do(http.MethodPost, "/api/v1/users/authenticate", "", CredentialsRequest{Username: username, Password: "password123"})
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	var token TokenDTO
	require.NoError(h.t, json.Unmarshal(env.Response, &token))
	require.NotEmpty(h.t, token.AccessToken)
	return token.AccessToken
}

func uintToString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Response, dst))
}

func TestSignUpAndAuthenticate(t *testing.T) {
	h := newHarness(t)
	token := h.signUpAndLogin("alice")

	w, env := h.do(http.MethodGet, "/api/v1/users/alice", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user UserDTO
	decode(t, env, &user)
	assert.Equal(t, "alice", user.Username)
	assert.NotContains(t, string(env.Response), "password")

	w, env = h.do(http.MethodPost, "/api/v1/users", "", CredentialsRequest{Username: "alice", Password: "other"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, http.StatusConflict, env.Status)

	wrong, wrongEnv := h.do(http.MethodPost, "/api/v1/users/authenticate", "", CredentialsRequest{Username: "alice", Password: "nope"})
	unknown, unknownEnv := h.do(http.MethodPost, "/api/v1/users/authenticate", "", CredentialsRequest{Username: "ghost", Password: "nope"})
	assert.Equal(t, http.StatusNotFound, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrongEnv.Error, unknownEnv.Error)
}

func TestGatedRoutesRejectWithoutToken(t *testing.T) {
	h := newHarness(t)
	h.signUpAndLogin("alice")

	for _, path := range []string{"/api/v1/users", "/api/v1/users/alice", "/api/v1/posts"} {
		w, _ := h.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String(), path)

		w, _ = h.do(http.MethodGet, path, "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String(), path)
	}

	w, _ := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auth_failures_total")
}

func TestDeletedUserTokenIsRejected(t *testing.T) {
	h := newHarness(t)
	token := h.signUpAndLogin("alice")

	w, _ := h.do(http.MethodDelete, "/api/v1/users/alice", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodGet, "/api/v1/posts", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFollowFlow(t *testing.T) {
	h := newHarness(t)
	alice := h.signUpAndLogin("alice")
	h.signUpAndLogin("bob")

	w, env := h.do(http.MethodPost, "/api/v1/users/bob/follows", alice, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var target UserDTO
	decode(t, env, &target)
	assert.True(t, target.IsFollowing)
	assert.Equal(t, int64(1), target.FollowersCount)

	w, _ = h.do(http.MethodPost, "/api/v1/users/bob/follows", alice, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = h.do(http.MethodPost, "/api/v1/users/alice/follows", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = h.do(http.MethodGet, "/api/v1/users/bob/followers", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var followers []FollowerDTO
	decode(t, env, &followers)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	w, env = h.do(http.MethodGet, "/api/v1/users/alice", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me UserDTO
	decode(t, env, &me)
	assert.Equal(t, int64(1), me.FollowingsCount)

	w, env = h.do(http.MethodDelete, "/api/v1/users/bob/follows", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, env, &target)
	assert.False(t, target.IsFollowing)
	assert.Equal(t, int64(0), target.FollowersCount)

	w, _ = h.do(http.MethodDelete, "/api/v1/users/bob/follows", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostLikeAndReplyFlow(t *testing.T) {
	h := newHarness(t)
	alice := h.signUpAndLogin("alice")
	bob := h.signUpAndLogin("bob")

	w, env := h.do(http.MethodPost, "/api/v1/posts", alice, BodyRequest{Body: "hello board"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post PostDTO
	decode(t, env, &post)
	assert.Equal(t, "alice", post.Author.Username)

	postPath := "/api/v1/posts/" + uintToString(post.ID)

	w, env = h.do(http.MethodPost, postPath+"/likes", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, env, &post)
	assert.True(t, post.IsLiking)
	assert.Equal(t, int64(1), post.LikesCount)

	w, env = h.do(http.MethodGet, postPath+"/liked-users", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var likers []LikedUserDTO
	decode(t, env, &likers)
	require.Len(t, likers, 1)
	assert.Equal(t, "bob", likers[0].Username)

	w, env = h.do(http.MethodPost, postPath+"/likes", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, env, &post)
	assert.False(t, post.IsLiking)
	assert.Equal(t, int64(0), post.LikesCount)

	w, env = h.do(http.MethodPost, postPath+"/replies", bob, BodyRequest{Body: "nice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reply ReplyDTO
	decode(t, env, &reply)

	w, env = h.do(http.MethodGet, postPath, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, env, &post)
	assert.Equal(t, int64(1), post.RepliesCount)

	replyPath := postPath + "/replies/" + uintToString(reply.ID)
	w, _ = h.do(http.MethodPatch, replyPath, alice, BodyRequest{Body: "edited by someone else"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = h.do(http.MethodDelete, replyPath, bob, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodPatch, postPath, bob, BodyRequest{Body: "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = h.do(http.MethodPost, "/api/v1/posts", alice, BodyRequest{Body: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = h.do(http.MethodGet, "/api/v1/posts/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = h.do(http.MethodPost, "/api/v1/posts/9999/likes", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfileOnlyByOwner(t *testing.T) {
	h := newHarness(t)
	alice := h.signUpAndLogin("alice")
	bob := h.signUpAndLogin("bob")

	w, _ := h.do(http.MethodPatch, "/api/v1/users/alice", bob, map[string]string{"description": "defaced"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := h.do(http.MethodPatch, "/api/v1/users/alice", alice, map[string]string{"description": "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	var user UserDTO
	decode(t, env, &user)
	assert.Equal(t, "hi", user.Description)
	assert.NotEmpty(t, user.Profile)
}
