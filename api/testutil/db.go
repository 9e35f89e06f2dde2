// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"testing"

	"Board/api/cache"
	"Board/api/models"
	"Board/api/security"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database private to t. The pool
// is pinned to one connection so every statement sees the same memory db.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

// FastHasher is bcrypt at its minimum cost.
func FastHasher() security.Hasher {
	return security.BcryptHasher{Cost: bcrypt.MinCost}
}

// CreateUser inserts a user directly, bypassing sign-up.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user, err := models.NewUser(username, "digest").SaveUser(db)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

// CreatePost inserts a post owned by owner.
func CreatePost(t *testing.T, db *gorm.DB, owner *models.User, body string) *models.Post {
	t.Helper()
	post := models.Post{Body: body, UserID: owner.ID}
	saved, err := post.SavePost(db)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return saved
}

// StartRedis points the post cache at an in-process Redis for the rest of t.
func StartRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.Client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = cache.Client.Close()
		cache.Client = nil
	})
	return mr
}
