package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"go-gin-gorm-users/internal/domain"
)

// UserRepo works on whatever handle it is given; in the API that is the
// request's transaction from database.WithSession.
type UserRepo struct{ db *gorm.DB }

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

// List pages through users in insertion order.
func (r *UserRepo) List(ctx context.Context, skip, limit int) ([]domain.User, error) {
	users := make([]domain.User, 0, limit)
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &u, nil
}

func (r *UserRepo) FindConflict(ctx context.Context, email, username string, excludeID uint64) error {
	check := func(column, value string, taken error) error {
		if value == "" {
			return nil
		}
		var n int64
		q := r.db.WithContext(ctx).Model(&domain.User{}).Where(column+" = ?", value)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&n).Error; err != nil {
			return fmt.Errorf("check %s: %w", column, err)
		}
		if n > 0 {
			return taken
		}
		return nil
	}
	if err := check("email", email, domain.ErrEmailTaken); err != nil {
		return err
	}
	return check("username", username, domain.ErrUsernameTaken)
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update writes only the supplied columns and returns the fresh row.
func (r *UserRepo) Update(ctx context.Context, id uint64, fields map[string]any) (*domain.User, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return u, nil
	}
	if err := r.db.WithContext(ctx).Model(u).Updates(fields).Error; err != nil {
		if isDupKey(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return r.FindByID(ctx, id)
}

// Delete removes the row permanently.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// isDupKey recognises unique violations. TranslateError covers the gorm
// drivers; the message check catches dialects that are not translated.
func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
