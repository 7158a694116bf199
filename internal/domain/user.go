package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")

	// ErrConflict is the umbrella for uniqueness violations.
	ErrConflict      = errors.New("user already exists")
	ErrEmailTaken    = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrUsernameTaken = fmt.Errorf("%w: username already taken", ErrConflict)
)

type User struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username       string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"`
	FullName       *string   `gorm:"size:100" json:"full_name"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	IsSuperuser    bool      `gorm:"not null" json:"is_superuser"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// NewUser fills the column defaults (is_active true, is_superuser false).
// The model carries no gorm default tags: gorm would skip a false bool on
// insert and let the column default win.
func NewUser(email, username, hashedPassword string) *User {
	return &User{Email: email, Username: username, HashedPassword: hashedPassword, IsActive: true}
}

// UserRepository is bound to one session; callers build a new one per request.
type UserRepository interface {
	List(ctx context.Context, skip, limit int) ([]User, error)
	FindByID(ctx context.Context, id uint64) (*User, error)
	// FindConflict returns ErrEmailTaken or ErrUsernameTaken when another
	// user (other than excludeID) already holds email or username. Empty
	// arguments are not checked.
	FindConflict(ctx context.Context, email, username string, excludeID uint64) error
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id uint64, fields map[string]any) (*User, error)
	Delete(ctx context.Context, id uint64) error
}
