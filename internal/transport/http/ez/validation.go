package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	resp "go-gin-gorm-users/internal/transport/http/response"
)

var (
	validatorOnce sync.Once
	usernameRe    = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// setupValidator reports fields by their wire name and adds the custom rules
// to gin's shared validator.
func setupValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(wireName)
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
	})
}

func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			continue
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// bindError maps a binding failure to a 422 with per-field details, or 413
// when the body hit the size cap.
func bindError(c *gin.Context, err error) resp.ErrorBody {
	var ves validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var numErr *strconv.NumError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return resp.Error(resp.CodeTooLarge, "request body too large")
	case errors.As(err, &ves):
		details := make([]resp.FieldError, 0, len(ves))
		for _, fe := range ves {
			details = append(details, resp.FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Message: fieldMessage(fe),
			})
		}
		return resp.Invalid(details)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return resp.Invalid([]resp.FieldError{{
			Field:   field,
			Rule:    "type",
			Message: "must be of type " + jsonKind(typeErr.Type),
		}})
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return resp.Invalid([]resp.FieldError{{Field: "body", Rule: "json", Message: "malformed JSON"}})
	case errors.Is(err, io.EOF):
		return resp.Invalid([]resp.FieldError{{Field: "body", Rule: "required", Message: "request body is required"}})
	case errors.As(err, &numErr):
		return resp.Invalid([]resp.FieldError{{Field: "params", Rule: "type", Message: fmt.Sprintf("%q is not a valid number", numErr.Num)}})
	}
	_ = c.Error(err)
	return resp.Invalid([]resp.FieldError{{Field: "body", Rule: "decode", Message: "request could not be decoded"}})
}

func fieldMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "email":
		return "must be a valid email address"
	case "username":
		return "may contain only letters, digits, '_', '.' and '-'"
	case "min":
		if isString {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be greater than or equal to " + fe.Param()
	case "max":
		if isString {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be less than or equal to " + fe.Param()
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag())
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	}
	return "object"
}
