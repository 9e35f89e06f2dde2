package models

import "gorm.io/gorm"

// AutoMigrate creates or updates every table, index and constraint.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Post{},
		&Reply{},
		&Follow{},
		&Like{},
	)
}

// NormalizeCounters clears NULL counters left by rows created before the
// columns existed.
func NormalizeCounters(db *gorm.DB) error {
	stmts := []string{
		"UPDATE users SET incoming_follow_count = 0 WHERE incoming_follow_count IS NULL",
		"UPDATE users SET outgoing_follow_count = 0 WHERE outgoing_follow_count IS NULL",
		"UPDATE posts SET likes_count = 0 WHERE likes_count IS NULL",
		"UPDATE posts SET replies_count = 0 WHERE replies_count IS NULL",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
