package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by who caused it and how it should be reported.
type Kind int

const (
	// Internal is anything not caused by the client. Its message is never
	// shown to callers.
	Internal Kind = iota
	InvalidToken
	UserNotFound
	UserAlreadyExists
	NotAuthorized
	SelfFollow
	FollowAlreadyExists
	FollowNotFound
	PostNotFound
	ReplyNotFound
	InvalidInput
)

const internalMessage = "Internal server error"

// Error is a client-facing error carrying its kind and public message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on kind so errors.Is(err, ErrUserNotFound) holds for every
// user-not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidToken        = &Error{Kind: InvalidToken, Message: "Unauthorized"}
	ErrUserNotFound        = &Error{Kind: UserNotFound, Message: "User not found"}
	ErrUserAlreadyExists   = &Error{Kind: UserAlreadyExists, Message: "User already exists"}
	ErrNotAuthorized       = &Error{Kind: NotAuthorized, Message: "User not allowed"}
	ErrSelfFollow          = &Error{Kind: SelfFollow, Message: "Cannot follow yourself"}
	ErrFollowAlreadyExists = &Error{Kind: FollowAlreadyExists, Message: "Follow already exists"}
	ErrFollowNotFound      = &Error{Kind: FollowNotFound, Message: "Follow not found"}
	ErrPostNotFound        = &Error{Kind: PostNotFound, Message: "Post not found"}
	ErrReplyNotFound       = &Error{Kind: ReplyNotFound, Message: "Reply not found"}
)

func UserNotFoundNamed(username string) *Error {
	return &Error{Kind: UserNotFound, Message: fmt.Sprintf("User with username=%s is not found", username)}
}

func UserAlreadyExistsNamed(username string) *Error {
	return &Error{Kind: UserAlreadyExists, Message: fmt.Sprintf("User with username=%s already exists", username)}
}

func FollowAlreadyExistsBetween(follower, following string) *Error {
	return &Error{Kind: FollowAlreadyExists, Message: fmt.Sprintf("%s already follows %s", follower, following)}
}

func FollowNotFoundBetween(follower, following string) *Error {
	return &Error{Kind: FollowNotFound, Message: fmt.Sprintf("%s does not follow %s", follower, following)}
}

func PostNotFoundID(postID uint) *Error {
	return &Error{Kind: PostNotFound, Message: fmt.Sprintf("Post with postId=%d is not found", postID)}
}

func ReplyNotFoundID(replyID uint) *Error {
	return &Error{Kind: ReplyNotFound, Message: fmt.Sprintf("Reply with replyId=%d is not found", replyID)}
}

func Invalid(format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidInput, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err, Internal for anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Status maps err onto the HTTP status the transport should answer with.
func Status(err error) int {
	switch KindOf(err) {
	case InvalidToken:
		return http.StatusUnauthorized
	case UserNotFound, FollowNotFound, PostNotFound, ReplyNotFound:
		return http.StatusNotFound
	case UserAlreadyExists, FollowAlreadyExists:
		return http.StatusConflict
	case NotAuthorized:
		return http.StatusForbidden
	case SelfFollow, InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message that is safe to send to the caller.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return internalMessage
}
