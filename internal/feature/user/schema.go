package user

import (
	"time"

	"go-gin-gorm-users/internal/domain"
)

// UserID is the path parameter of the single-user routes. A non-numeric id
// fails binding; 0 matches no row. Ids past the signed 64-bit range cannot be
// sent to the drivers, so they fail validation.
type UserID struct {
	ID uint64 `uri:"id" json:"-" binding:"max=9223372036854775807"`
}

type CreateUserIn struct {
	Email       string  `json:"email" binding:"required,email,max=255"`
	Username    string  `json:"username" binding:"required,min=3,max=50,username"`
	Password    string  `json:"password" binding:"required,min=8,max=72"`
	FullName    *string `json:"full_name" binding:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// UpdateUserIn holds the fields to change. Absent and null fields are left
// alone; an empty full_name clears it.
type UpdateUserIn struct {
	UserID
	Email       *string `json:"email" binding:"omitnil,email,max=255"`
	Username    *string `json:"username" binding:"omitnil,min=3,max=50,username"`
	Password    *string `json:"password" binding:"omitnil,min=8,max=72"`
	FullName    *string `json:"full_name" binding:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

type ListQuery struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=100" binding:"min=1,max=1000"`
}

// UserOut is the only shape a user leaves the service in.
type UserOut struct {
	ID          uint64    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FullName    *string   `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toOut(u *domain.User) UserOut {
	return UserOut{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func nilIfEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// changes lists the columns an update touches, keyed by column name. The
// password is hashed separately.
func (in *UpdateUserIn) changes() map[string]any {
	fields := map[string]any{}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.Username != nil {
		fields["username"] = *in.Username
	}
	if in.FullName != nil {
		fields["full_name"] = nilIfEmpty(in.FullName)
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if in.IsSuperuser != nil {
		fields["is_superuser"] = *in.IsSuperuser
	}
	return fields
}
