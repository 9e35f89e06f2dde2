package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Reply struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Reply) Prepare() {
	r.ID = 0
	r.User = User{}
}

func (r *Reply) Validate() map[string]string {
	var errorMessages = make(map[string]string)
	if strings.TrimSpace(r.Body) == "" {
		errorMessages["Required_body"] = "Body is required"
	}
	if r.UserID == 0 {
		errorMessages["Required_user"] = "User is required"
	}
	if r.PostID == 0 {
		errorMessages["Required_post"] = "Post is required"
	}
	return errorMessages
}

func (r *Reply) SaveReply(db *gorm.DB) (*Reply, error) {
	if err := db.Create(r).Error; err != nil {
		return nil, err
	}
	return FindReply(db, r.PostID, r.ID)
}

// FindReply loads a reply only if it belongs to postID.
func FindReply(db *gorm.DB, postID, replyID uint) (*Reply, error) {
	var reply Reply
	if err := db.Preload("User").Where("id = ? AND post_id = ?", replyID, postID).Take(&reply).Error; err != nil {
		return nil, err
	}
	return &reply, nil
}

func RepliesOfPost(db *gorm.DB, postID uint) ([]Reply, error) {
	var replies []Reply
	if err := db.Preload("User").Where("post_id = ?", postID).Order("created_at asc, id asc").Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func RepliesByUser(db *gorm.DB, uid uint) ([]Reply, error) {
	var replies []Reply
	if err := db.Preload("User").Where("user_id = ?", uid).Order("created_at desc, id desc").Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *Reply) UpdateBody(db *gorm.DB, body string) (*Reply, error) {
	if err := db.Model(r).Update("body", body).Error; err != nil {
		return nil, err
	}
	return FindReply(db, r.PostID, r.ID)
}

// DeleteReply soft-deletes the reply and reports whether a live row was hit.
func (r *Reply) DeleteReply(db *gorm.DB) (bool, error) {
	result := db.Where("id = ?", r.ID).Delete(&Reply{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
