package migration

import (
	"gorm.io/gorm"

	"github.com/anongrove/grove-backend/internal/domain"
)

// Run executes AutoMigrate for the posts and post_histories tables.
// AutoMigrate creates missing tables and indexes, including the unique index
// on posts.number that backstops acceptance numbering.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Post{}, &domain.PostHistory{})
}
