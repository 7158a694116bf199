// Package user mounts the /users CRUD endpoints.
package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/repo"
	"go-gin-gorm-users/internal/transport/http/ez"
	resp "go-gin-gorm-users/internal/transport/http/response"
	"go-gin-gorm-users/pkg/utils"
)

type Module struct {
	// Repo builds the repository over the request's session.
	Repo func(tx *gorm.DB) domain.UserRepository
}

func NewModule() *Module {
	return &Module{Repo: func(tx *gorm.DB) domain.UserRepository { return repo.NewUserRepo(tx) }}
}

func (m *Module) Priority() int { return 10 }

func (m *Module) MountAPI(api ez.EZ) {
	g := api.Group("/users", "users")

	ez.RegisterAction(g, ez.Action[ListQuery, []UserOut]{
		Method: http.MethodGet, Path: "/", Bind: ez.FromQuery, UseTx: true,
		Summary: "List users",
		Handler: m.list,
	})
	ez.RegisterAction(g, ez.Action[UserID, UserOut]{
		Method: http.MethodGet, Path: "/:id", Bind: ez.FromURI, UseTx: true,
		Summary: "Get a user", Errors: []int{http.StatusNotFound},
		Handler: m.get,
	})
	ez.RegisterAction(g, ez.Action[CreateUserIn, UserOut]{
		Method: http.MethodPost, Path: "/", Bind: ez.FromJSON, UseTx: true,
		Status:  http.StatusCreated,
		Summary: "Create a user", Errors: []int{http.StatusConflict},
		Handler: m.create,
	})
	ez.RegisterAction(g, ez.Action[UpdateUserIn, UserOut]{
		Method: http.MethodPut, Path: "/:id", Bind: ez.FromJSON | ez.FromURI, UseTx: true,
		Summary: "Update a user", Errors: []int{http.StatusNotFound, http.StatusConflict},
		Handler: m.update,
	})
	ez.RegisterAction(g, ez.Action[UserID, struct{}]{
		Method: http.MethodDelete, Path: "/:id", Bind: ez.FromURI, UseTx: true,
		Status:  http.StatusNoContent,
		Summary: "Delete a user", Errors: []int{http.StatusNotFound},
		Handler: m.delete,
	})
}

func (m *Module) list(c *gin.Context, tx *gorm.DB, in *ListQuery) ([]UserOut, error) {
	users, err := m.Repo(tx).List(c.Request.Context(), in.Skip, in.Limit)
	if err != nil {
		return nil, failure("list users", err)
	}
	out := make([]UserOut, 0, len(users))
	for i := range users {
		out = append(out, toOut(&users[i]))
	}
	return out, nil
}

func (m *Module) get(c *gin.Context, tx *gorm.DB, in *UserID) (UserOut, error) {
	u, err := m.Repo(tx).FindByID(c.Request.Context(), in.ID)
	if err != nil {
		return UserOut{}, failure("get user", err)
	}
	return toOut(u), nil
}

func (m *Module) create(c *gin.Context, tx *gorm.DB, in *CreateUserIn) (UserOut, error) {
	ctx := c.Request.Context()
	users := m.Repo(tx)

	if err := users.FindConflict(ctx, in.Email, in.Username, 0); err != nil {
		return UserOut{}, failure("create user", err)
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return UserOut{}, failure("hash password", err)
	}

	u := domain.NewUser(in.Email, in.Username, hash)
	u.FullName = nilIfEmpty(in.FullName)
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		u.IsSuperuser = *in.IsSuperuser
	}
	if err := users.Create(ctx, u); err != nil {
		return UserOut{}, failure("create user", err)
	}
	return toOut(u), nil
}

func (m *Module) update(c *gin.Context, tx *gorm.DB, in *UpdateUserIn) (UserOut, error) {
	ctx := c.Request.Context()
	users := m.Repo(tx)

	if _, err := users.FindByID(ctx, in.ID); err != nil {
		return UserOut{}, failure("update user", err)
	}
	var email, username string
	if in.Email != nil {
		email = *in.Email
	}
	if in.Username != nil {
		username = *in.Username
	}
	if err := users.FindConflict(ctx, email, username, in.ID); err != nil {
		return UserOut{}, failure("update user", err)
	}

	fields := in.changes()
	if in.Password != nil {
		hash, err := utils.HashPassword(*in.Password)
		if err != nil {
			return UserOut{}, failure("hash password", err)
		}
		fields["hashed_password"] = hash
	}

	u, err := users.Update(ctx, in.ID, fields)
	if err != nil {
		return UserOut{}, failure("update user", err)
	}
	return toOut(u), nil
}

func (m *Module) delete(c *gin.Context, tx *gorm.DB, in *UserID) (struct{}, error) {
	if err := m.Repo(tx).Delete(c.Request.Context(), in.ID); err != nil {
		return struct{}{}, failure("delete user", err)
	}
	return struct{}{}, nil
}

// failure turns a domain error into the response the client sees. Anything
// unrecognised becomes a 500 with op attached for the log.
func failure(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return ez.NotFound("User not found")
	case errors.Is(err, domain.ErrEmailTaken):
		return ez.Conflict("User with this email already exists")
	case errors.Is(err, domain.ErrUsernameTaken):
		return ez.Conflict("User with this username already exists")
	case errors.Is(err, domain.ErrConflict):
		return ez.Conflict("User with this email or username already exists")
	case errors.Is(err, utils.ErrPasswordTooLong):
		return &ez.AErr{Code: resp.CodeUnprocessable, Msg: "password must be at most 72 bytes"}
	}
	return ez.Internal(op, err)
}
