package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Post is owned by exactly one user. LikesCount and RepliesCount mirror the
// like edges and live replies that reference it.
type Post struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Body         string         `gorm:"type:text;not null" json:"body"`
	RepliesCount int64          `gorm:"not null;default:0" json:"replies_count"`
	LikesCount   int64          `gorm:"not null;default:0" json:"likes_count"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	User         User           `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) Prepare() {
	p.ID = 0
	p.User = User{}
	p.LikesCount = 0
	p.RepliesCount = 0
}

func (p *Post) Validate() map[string]string {
	var errorMessages = make(map[string]string)
	if strings.TrimSpace(p.Body) == "" {
		errorMessages["Required_body"] = "Body is required"
	}
	if p.UserID == 0 {
		errorMessages["Required_user"] = "User is required"
	}
	return errorMessages
}

func (p *Post) SavePost(db *gorm.DB) (*Post, error) {
	if err := db.Create(p).Error; err != nil {
		return nil, err
	}
	return FindPostByID(db, p.ID)
}

func FindPostByID(db *gorm.DB, pid uint) (*Post, error) {
	var post Post
	if err := db.Preload("User").Where("id = ?", pid).Take(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func FindAllPosts(db *gorm.DB, limit int) ([]Post, error) {
	var posts []Post
	if err := db.Preload("User").Order("created_at desc, id desc").Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func PostsByUser(db *gorm.DB, uid uint) ([]Post, error) {
	var posts []Post
	if err := db.Preload("User").Where("user_id = ?", uid).Order("created_at desc, id desc").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func PostIDsByUser(db *gorm.DB, uid uint) ([]uint, error) {
	var ids []uint
	if err := db.Model(&Post{}).Where("user_id = ?", uid).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *Post) UpdateBody(db *gorm.DB, body string) (*Post, error) {
	if err := db.Model(p).Update("body", body).Error; err != nil {
		return nil, err
	}
	return FindPostByID(db, p.ID)
}

// DeletePost soft-deletes the post.
func (p *Post) DeletePost(db *gorm.DB) (int64, error) {
	result := db.Where("id = ?", p.ID).Delete(&Post{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
