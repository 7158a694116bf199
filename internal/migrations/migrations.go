// Package migrations holds the ordered schema history of the service.
//
// Each step works on a frozen copy of the model as it looked at that version,
// so later edits to domain.User never rewrite history. New steps go at the end
// of All with a larger version (see `migrate new`).
package migrations

import (
	"time"

	"gorm.io/gorm"

	"go-gin-gorm-users/internal/core/migrate"
)

func All() []migrate.Migration {
	return []migrate.Migration{
		{
			Version: "20240101000001",
			Name:    "create_users",
			Up: func(tx *gorm.DB) error {
				return tx.Migrator().CreateTable(&usersV1{})
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&usersV1{})
			},
		},
		{
			Version: "20240101000002",
			Name:    "add_users_is_superuser",
			Up: func(tx *gorm.DB) error {
				return tx.Migrator().AddColumn(&usersV2{}, "IsSuperuser")
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropColumn(&usersV2{}, "IsSuperuser")
			},
		},
	}
}

type usersV1 struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	Email          string    `gorm:"uniqueIndex:idx_users_email;size:255;not null"`
	Username       string    `gorm:"uniqueIndex:idx_users_username;size:50;not null"`
	HashedPassword string    `gorm:"size:255;not null"`
	FullName       *string   `gorm:"size:100"`
	IsActive       bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (usersV1) TableName() string { return "users" }

type usersV2 struct {
	usersV1
	IsSuperuser bool `gorm:"not null;default:false"`
}

func (usersV2) TableName() string { return "users" }
