// Package docs builds an OpenAPI 3.0 document from the actions registered
// through ez and serves it with Swagger UI and ReDoc pages.
package docs

import (
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	resp "go-gin-gorm-users/internal/transport/http/response"
)

// Operation is what ez records per registered action.
type Operation struct {
	Method  string
	Path    string // gin syntax, /users/:id
	Summary string
	Tag     string
	Status  int
	Errors  []int
	Input   reflect.Type
	Output  reflect.Type
	InBody  bool
	InQuery bool
	InPath  bool
}

type Builder struct {
	mu          sync.Mutex
	title       string
	version     string
	description string
	ops         []Operation
}

func NewBuilder(title, version, description string) *Builder {
	return &Builder{title: title, version: version, description: description}
}

func (b *Builder) Add(op Operation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, op)
}

// Document renders the current operations. The result marshals to JSON
// with stable key order.
func (b *Builder) Document() map[string]any {
	b.mu.Lock()
	ops := append([]Operation(nil), b.ops...)
	b.mu.Unlock()

	g := &schemaGen{components: map[string]any{}}
	errRef := g.schema(reflect.TypeOf(resp.ErrorBody{}))

	paths := map[string]any{}
	tagSet := map[string]struct{}{}
	for _, op := range ops {
		p := openAPIPath(op.Path)
		item, _ := paths[p].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[p] = item
		}

		o := map[string]any{
			"summary":     op.Summary,
			"operationId": operationID(op),
			"responses":   g.responses(op, errRef),
		}
		if op.Tag != "" {
			o["tags"] = []string{op.Tag}
			tagSet[op.Tag] = struct{}{}
		}
		if params := g.parameters(op); len(params) > 0 {
			o["parameters"] = params
		}
		if op.InBody && op.Input != nil {
			o["requestBody"] = map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{"schema": g.schema(op.Input)},
				},
			}
		}
		item[strings.ToLower(op.Method)] = o
	}

	tags := make([]map[string]any, 0, len(tagSet))
	names := make([]string, 0, len(tagSet))
	for t := range tagSet {
		names = append(names, t)
	}
	sort.Strings(names)
	for _, t := range names {
		tags = append(tags, map[string]any{"name": t})
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       b.title,
			"version":     b.version,
			"description": b.description,
		},
		"tags":       tags,
		"paths":      paths,
		"components": map[string]any{"schemas": g.components},
	}
}

func (g *schemaGen) responses(op Operation, errRef map[string]any) map[string]any {
	out := map[string]any{}
	ok := map[string]any{"description": http.StatusText(op.Status)}
	if op.Status != http.StatusNoContent && op.Output != nil && op.Output != emptyStruct {
		ok["content"] = map[string]any{
			"application/json": map[string]any{"schema": g.schema(op.Output)},
		}
	}
	out[strconv.Itoa(op.Status)] = ok

	codes := append([]int(nil), op.Errors...)
	if op.InBody || op.InQuery || op.InPath {
		codes = append(codes, http.StatusUnprocessableEntity)
	}
	codes = append(codes, http.StatusInternalServerError)
	for _, code := range codes {
		out[strconv.Itoa(code)] = map[string]any{
			"description": http.StatusText(code),
			"content": map[string]any{
				"application/json": map[string]any{"schema": errRef},
			},
		}
	}
	return out
}

func (g *schemaGen) parameters(op Operation) []map[string]any {
	if op.Input == nil {
		return nil
	}
	var params []map[string]any
	var walk func(t reflect.Type)
	walk = func(t reflect.Type) {
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				walk(f.Type)
				continue
			}
			if !f.IsExported() {
				continue
			}
			if op.InPath {
				if name, _, _ := strings.Cut(f.Tag.Get("uri"), ","); name != "" && name != "-" {
					params = append(params, map[string]any{
						"name": name, "in": "path", "required": true, "schema": g.field(f),
					})
				}
			}
			if op.InQuery {
				tag := f.Tag.Get("form")
				name, opts, _ := strings.Cut(tag, ",")
				if name == "" || name == "-" {
					continue
				}
				s := g.field(f)
				if def, found := strings.CutPrefix(opts, "default="); found {
					s["default"] = literal(def, f.Type)
				}
				params = append(params, map[string]any{
					"name": name, "in": "query", "required": hasRule(f, "required"), "schema": s,
				})
			}
		}
	}
	walk(op.Input)
	return params
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	emptyStruct = reflect.TypeOf(struct{}{})
)

type schemaGen struct {
	components map[string]any
}

func (g *schemaGen) schema(t reflect.Type) map[string]any {
	nullable := false
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
		nullable = true
	}

	var s map[string]any
	switch t.Kind() {
	case reflect.Struct:
		if t == timeType {
			s = map[string]any{"type": "string", "format": "date-time"}
			break
		}
		if t.Name() == "" {
			return g.object(t)
		}
		if _, seen := g.components[t.Name()]; !seen {
			g.components[t.Name()] = map[string]any{} // placeholder for recursive types
			g.components[t.Name()] = g.object(t)
		}
		return map[string]any{"$ref": "#/components/schemas/" + t.Name()}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			s = map[string]any{"type": "string", "format": "byte"}
			break
		}
		s = map[string]any{"type": "array", "items": g.schema(t.Elem())}
	case reflect.Map:
		s = map[string]any{"type": "object", "additionalProperties": g.schema(t.Elem())}
	case reflect.String:
		s = map[string]any{"type": "string"}
	case reflect.Bool:
		s = map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		s = map[string]any{"type": "integer", "format": "int32"}
	case reflect.Int64:
		s = map[string]any{"type": "integer", "format": "int64"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		s = map[string]any{"type": "integer", "format": "int64", "minimum": 0}
	case reflect.Float32, reflect.Float64:
		s = map[string]any{"type": "number"}
	default:
		s = map[string]any{}
	}
	if nullable {
		s["nullable"] = true
	}
	return s
}

// object describes the JSON body of a struct: embedded structs are flattened
// and fields tagged json:"-" are left out.
func (g *schemaGen) object(t reflect.Type) map[string]any {
	props := map[string]any{}
	var required []string
	var walk func(t reflect.Type)
	walk = func(t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
				walk(f.Type)
				continue
			}
			if !f.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			props[name] = g.field(f)
			if hasRule(f, "required") {
				required = append(required, name)
			}
		}
	}
	walk(t)

	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// field is the schema of f with its binding rules applied.
func (g *schemaGen) field(f reflect.StructField) map[string]any {
	s := g.schema(f.Type)
	if _, isRef := s["$ref"]; isRef {
		return s
	}
	base := f.Type
	for base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	isString := base.Kind() == reflect.String
	for _, rule := range strings.Split(f.Tag.Get("binding"), ",") {
		name, param, _ := strings.Cut(rule, "=")
		switch name {
		case "email":
			s["format"] = "email"
		case "min":
			if n, err := strconv.Atoi(param); err == nil {
				if isString {
					s["minLength"] = n
				} else {
					s["minimum"] = n
				}
			}
		case "max":
			if n, err := strconv.Atoi(param); err == nil {
				if isString {
					s["maxLength"] = n
				} else {
					s["maximum"] = n
				}
			}
		case "username":
			s["pattern"] = `^[A-Za-z0-9_.-]+$`
		}
	}
	return s
}

func hasRule(f reflect.StructField, rule string) bool {
	for _, r := range strings.Split(f.Tag.Get("binding"), ",") {
		if r == rule {
			return true
		}
	}
	return false
}

func literal(raw string, t reflect.Type) any {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

// openAPIPath converts gin params (:id, *rest) into {id}, {rest}.
func openAPIPath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			parts[i] = "{" + part[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

func operationID(op Operation) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(op.Method))
	for _, part := range strings.FieldsFunc(op.Path, func(r rune) bool { return r == '/' || r == '_' || r == '-' }) {
		part = strings.TrimLeft(part, ":*")
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}
