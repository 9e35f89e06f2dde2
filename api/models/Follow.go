package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Follow is a directed edge: Follower follows Following. The pair is unique
// and self-loops are rejected by a check constraint.
type Follow struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follows_pair,priority:1;index:idx_follows_follower_created,priority:1" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follows_pair,priority:2;index:idx_follows_following_created,priority:1;check:chk_follows_no_self,follower_id <> following_id" json:"following_id"`
	Follower    User      `gorm:"foreignKey:FollowerID" json:"-"`
	Following   User      `gorm:"foreignKey:FollowingID" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_follows_follower_created,priority:2;index:idx_follows_following_created,priority:2" json:"created_at"`
}

// InsertFollow adds the edge unless it already exists. The unique index is
// the guard: a concurrent duplicate insert reports created == false.
func InsertFollow(tx *gorm.DB, followerID, followingID uint) (bool, error) {
	follow := Follow{FollowerID: followerID, FollowingID: followingID}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteFollow hard-deletes the edge and reports whether one was removed.
func DeleteFollow(tx *gorm.DB, followerID, followingID uint) (bool, error) {
	result := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&Follow{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func FollowExists(db *gorm.DB, followerID, followingID uint) (bool, error) {
	var follow Follow
	err := db.Select("id").Where("follower_id = ? AND following_id = ?", followerID, followingID).Take(&follow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FollowersOf lists edges pointing at userID, newest first, with the
// follower loaded.
func FollowersOf(db *gorm.DB, userID uint) ([]Follow, error) {
	var follows []Follow
	err := db.Preload("Follower").
		Where("following_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&follows).Error
	if err != nil {
		return nil, err
	}
	return follows, nil
}

// FollowingsOf lists edges owned by userID, newest first, with the followed
// user loaded.
func FollowingsOf(db *gorm.DB, userID uint) ([]Follow, error) {
	var follows []Follow
	err := db.Preload("Following").
		Where("follower_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&follows).Error
	if err != nil {
		return nil, err
	}
	return follows, nil
}

// FollowedAmong returns which of candidateIDs followerID follows.
func FollowedAmong(db *gorm.DB, followerID uint, candidateIDs []uint) (map[uint]bool, error) {
	followed := make(map[uint]bool)
	if followerID == 0 || len(candidateIDs) == 0 {
		return followed, nil
	}
	var ids []uint
	if err := db.Model(&Follow{}).
		Where("follower_id = ? AND following_id IN ?", followerID, candidateIDs).
		Pluck("following_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		followed[id] = true
	}
	return followed, nil
}
