package controllers

import "time"

type UserDTO struct {
	ID              uint      `json:"id"`
	Username        string    `json:"username"`
	Profile         string    `json:"profile"`
	Description     string    `json:"description"`
	FollowersCount  int64     `json:"followers_count"`
	FollowingsCount int64     `json:"followings_count"`
	IsFollowing     bool      `json:"is_following"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type UserSummaryDTO struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Profile  string `json:"profile"`
}

type FollowerDTO struct {
	UserDTO
	FollowedAt time.Time `json:"followed_at"`
}

type LikedUserDTO struct {
	UserDTO
	PostID  uint      `json:"post_id"`
	LikedAt time.Time `json:"liked_at"`
}

type PostDTO struct {
	ID           uint           `json:"id"`
	Body         string         `json:"body"`
	Author       UserSummaryDTO `json:"author"`
	LikesCount   int64          `json:"likes_count"`
	RepliesCount int64          `json:"replies_count"`
	IsLiking     bool           `json:"is_liking"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ReplyDTO struct {
	ID        uint           `json:"id"`
	PostID    uint           `json:"post_id"`
	Body      string         `json:"body"`
	Author    UserSummaryDTO `json:"author"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type TokenDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type BodyRequest struct {
	Body string `json:"body"`
}
