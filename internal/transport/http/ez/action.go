package ez

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"go-gin-gorm-users/internal/core/database"
	"go-gin-gorm-users/internal/transport/http/docs"
	resp "go-gin-gorm-users/internal/transport/http/response"
)

// Source says where an action's input is bound from. Sources combine:
// FromJSON|FromURI binds the body and then the path params into one struct.
type Source uint8

const (
	FromJSON Source = 1 << iota
	FromQuery
	FromURI

	BindNone Source = 0
)

// EZ is a router group plus what every action on it needs: the pool to open
// sessions from and the docs builder the action is recorded in.
type EZ struct {
	g    *gin.RouterGroup
	db   *gorm.DB
	docs *docs.Builder
	tag  string
}

func New(g *gin.RouterGroup, db *gorm.DB, d *docs.Builder) EZ {
	setupValidator()
	return EZ{g: g, db: db, docs: d}
}

// Group returns an EZ on a sub path; tag groups its operations in the docs.
func (e EZ) Group(path, tag string) EZ {
	return EZ{g: e.g.Group(path), db: e.db, docs: e.docs, tag: tag}
}

// AErr carries an HTTP status and a public message. Err is the internal
// cause; it is logged, never sent.
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func NotFound(msg string) error   { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Conflict(msg string) error   { return &AErr{Code: resp.CodeConflict, Msg: msg} }
func Unavailable(msg string, err error) error {
	return &AErr{Code: resp.CodeUnavailable, Msg: msg, Err: err}
}
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Action describes one endpoint: I is the bound input, O the response body.
type Action[I any, O any] struct {
	Method  string
	Path    string // relative to the group, e.g. "/" or "/:id"
	Bind    Source
	Status  int  // success status, 200 when zero; 204 sends no body
	UseTx   bool // run Handler inside database.WithSession
	Summary string
	Errors  []int // failure statuses listed in the docs
	Handler func(c *gin.Context, tx *gorm.DB, in *I) (O, error)
}

// RegisterAction mounts a on e and records it in the docs. A path ending in
// "/" is also served without the slash so clients are not redirected.
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}

	h := func(c *gin.Context) {
		var in I
		if err := bind(c, a.Bind, &in); err != nil {
			resp.Abort(c, bindError(c, err))
			return
		}

		var out O
		var err error
		if a.UseTx && e.db != nil {
			err = database.WithSession(c.Request.Context(), e.db, func(tx *gorm.DB) error {
				o, herr := a.Handler(c, tx, &in)
				out = o
				return herr
			})
		} else {
			var tx *gorm.DB
			if e.db != nil {
				tx = e.db.WithContext(c.Request.Context())
			}
			out, err = a.Handler(c, tx, &in)
		}

		if err != nil {
			resp.Abort(c, handlerError(c, err))
			return
		}
		if status == http.StatusNoContent {
			c.Status(status)
			return
		}
		c.JSON(status, out)
	}

	method := strings.ToUpper(a.Method)
	e.g.Handle(method, a.Path, h)
	if a.Path != "/" && strings.HasSuffix(a.Path, "/") {
		e.g.Handle(method, strings.TrimSuffix(a.Path, "/"), h)
	} else if a.Path == "/" && e.g.BasePath() != "/" {
		e.g.Handle(method, "", h)
	}

	if e.docs != nil {
		e.docs.Add(docs.Operation{
			Method:  method,
			Path:    joinPaths(e.g.BasePath(), a.Path),
			Summary: a.Summary,
			Tag:     e.tag,
			Status:  status,
			Errors:  a.Errors,
			Input:   reflect.TypeOf((*I)(nil)).Elem(),
			Output:  reflect.TypeOf((*O)(nil)).Elem(),
			InBody:  a.Bind&FromJSON != 0,
			InQuery: a.Bind&FromQuery != 0,
			InPath:  a.Bind&FromURI != 0,
		})
	}
}

// bind runs the body first: URI and query binding validate the whole struct,
// and only body fields can carry required rules.
func bind(c *gin.Context, src Source, in any) error {
	if src&FromJSON != 0 {
		if err := c.ShouldBindJSON(in); err != nil {
			return err
		}
	}
	if src&FromURI != 0 {
		if err := c.ShouldBindUri(in); err != nil {
			return err
		}
	}
	if src&FromQuery != 0 {
		if err := c.ShouldBindQuery(in); err != nil {
			return err
		}
	}
	return nil
}

func handlerError(c *gin.Context, err error) resp.ErrorBody {
	if errors.Is(err, context.DeadlineExceeded) {
		_ = c.Error(err)
		return resp.Error(resp.CodeTimeout, "request timed out")
	}
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Err != nil {
			_ = c.Error(ae.Err)
		}
		if ae.Code >= http.StatusInternalServerError {
			return resp.Error(ae.Code, "")
		}
		return resp.Error(ae.Code, ae.Error())
	}
	_ = c.Error(err)
	return resp.Error(resp.CodeServerError, "")
}

func joinPaths(base, rel string) string {
	if rel == "" || rel == "/" {
		if base == "" {
			return "/"
		}
		if !strings.HasSuffix(base, "/") {
			return base + "/"
		}
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
}
