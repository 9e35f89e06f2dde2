package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Like records that a user likes a post. The pair is unique.
type Like struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_pair,priority:1;index" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_pair,priority:2;index" json:"post_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func FindLike(db *gorm.DB, userID, postID uint) (*Like, error) {
	var like Like
	if err := db.Where("user_id = ? AND post_id = ?", userID, postID).Take(&like).Error; err != nil {
		return nil, err
	}
	return &like, nil
}

// InsertLike adds the edge unless it already exists; created is false when a
// concurrent insert won.
func InsertLike(tx *gorm.DB, userID, postID uint) (bool, error) {
	like := Like{UserID: userID, PostID: postID}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func DeleteLike(tx *gorm.DB, likeID uint) (bool, error) {
	result := tx.Where("id = ?", likeID).Delete(&Like{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LikesOfPosts lists like edges on any of postIDs, newest first, with the
// liking user loaded.
func LikesOfPosts(db *gorm.DB, postIDs []uint) ([]Like, error) {
	var likes []Like
	if len(postIDs) == 0 {
		return likes, nil
	}
	err := db.Preload("User").
		Where("post_id IN ?", postIDs).
		Order("created_at desc, id desc").
		Find(&likes).Error
	if err != nil {
		return nil, err
	}
	return likes, nil
}

// LikedAmong returns which of postIDs userID likes.
func LikedAmong(db *gorm.DB, userID uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if userID == 0 || len(postIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	if err := db.Model(&Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
