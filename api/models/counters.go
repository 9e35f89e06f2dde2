package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Denormalized counter columns.
const (
	IncomingFollowsColumn = "incoming_follow_count"
	OutgoingFollowsColumn = "outgoing_follow_count"
	LikesColumn           = "likes_count"
	RepliesColumn         = "replies_count"
)

// IncrementCounter adds one to column on the live row id of model's table.
// A missing row is an error so the surrounding transaction rolls back.
func IncrementCounter(tx *gorm.DB, model interface{}, id uint, column string) error {
	return applyCounter(tx, model, id, column, gorm.Expr(column+" + 1"))
}

// DecrementCounter subtracts one from column, never going below zero.
func DecrementCounter(tx *gorm.DB, model interface{}, id uint, column string) error {
	return applyCounter(tx, model, id, column, floorDecrement(column))
}

func floorDecrement(column string) interface{} {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s > 0 THEN %[1]s - 1 ELSE 0 END", column))
}

func applyCounter(tx *gorm.DB, model interface{}, id uint, column string, expr interface{}) error {
	result := tx.Model(model).Where("id = ?", id).UpdateColumn(column, expr)
	if result.Error != nil {
		return fmt.Errorf("update %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DetachUser removes every follow and like edge touching userID and walks the
// counterpart counters down with them. Run it inside the transaction that
// soft-deletes the user.
func DetachUser(tx *gorm.DB, userID uint) error {
	followedIDs := tx.Model(&Follow{}).Select("following_id").Where("follower_id = ?", userID)
	if err := tx.Model(&User{}).Where("id IN (?)", followedIDs).
		UpdateColumn(IncomingFollowsColumn, floorDecrement(IncomingFollowsColumn)).Error; err != nil {
		return fmt.Errorf("release followed users: %w", err)
	}

	followerIDs := tx.Model(&Follow{}).Select("follower_id").Where("following_id = ?", userID)
	if err := tx.Model(&User{}).Where("id IN (?)", followerIDs).
		UpdateColumn(OutgoingFollowsColumn, floorDecrement(OutgoingFollowsColumn)).Error; err != nil {
		return fmt.Errorf("release followers: %w", err)
	}

	if err := tx.Where("follower_id = ? OR following_id = ?", userID, userID).Delete(&Follow{}).Error; err != nil {
		return fmt.Errorf("delete follows: %w", err)
	}

	likedPostIDs := tx.Model(&Like{}).Select("post_id").Where("user_id = ?", userID)
	if err := tx.Model(&Post{}).Where("id IN (?)", likedPostIDs).
		UpdateColumn(LikesColumn, floorDecrement(LikesColumn)).Error; err != nil {
		return fmt.Errorf("release liked posts: %w", err)
	}

	if err := tx.Where("user_id = ?", userID).Delete(&Like{}).Error; err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}
	return nil
}
