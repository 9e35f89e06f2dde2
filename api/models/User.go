package models

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is the persisted account. Soft-deleted rows are excluded from every
// query by gorm, and only active usernames have to be unique.
type User struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username    string `gorm:"size:255;not null;uniqueIndex:idx_users_username_active,where:deleted_at IS NULL" json:"username"`
	Password    string `gorm:"size:255;not null" json:"-"`
	Profile     string `gorm:"size:255" json:"profile"`
	Description string `gorm:"type:text" json:"description"`

	// IncomingFollowCount mirrors the number of follow edges pointing at this
	// user (its followers). OutgoingFollowCount mirrors the edges it owns.
	IncomingFollowCount int64 `gorm:"not null;default:0" json:"followers_count"`
	OutgoingFollowCount int64 `gorm:"not null;default:0" json:"followings_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

const avatarURLFormat = "https://avatar.iran.liara.run/public/%d"

// NewUser builds an account row with zeroed counters and a random avatar.
func NewUser(username, passwordDigest string) *User {
	return &User{
		Username: username,
		Password: passwordDigest,
		Profile:  fmt.Sprintf(avatarURLFormat, rand.Intn(100)+1),
	}
}

func (u *User) Validate() map[string]string {
	var errorMessages = make(map[string]string)
	if strings.TrimSpace(u.Username) == "" {
		errorMessages["Required_username"] = "Required Username"
	}
	if u.Password == "" {
		errorMessages["Required_password"] = "Required Password"
	}
	return errorMessages
}

func (u *User) SaveUser(db *gorm.DB) (*User, error) {
	u.ID = 0
	u.IncomingFollowCount = 0
	u.OutgoingFollowCount = 0
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// FindUserByUsername matches the username exactly, case included.
func FindUserByUsername(db *gorm.DB, username string) (*User, error) {
	var user User
	if err := db.Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func FindUserByID(db *gorm.DB, uid uint) (*User, error) {
	var user User
	if err := db.Where("id = ?", uid).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers returns active users whose username contains query, or every
// active user when query is blank.
func SearchUsers(db *gorm.DB, query string, limit int) ([]User, error) {
	var users []User
	q := db.Order("id asc").Limit(limit)
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		q = q.Where("username LIKE ? ESCAPE '\\'", "%"+escapeLike(trimmed)+"%")
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile writes only the columns present in fields.
func (u *User) UpdateProfile(db *gorm.DB, fields map[string]interface{}) (*User, error) {
	if len(fields) > 0 {
		if err := db.Model(u).Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	return FindUserByID(db, u.ID)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
