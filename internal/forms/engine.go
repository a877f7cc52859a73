// Package forms evaluates upload form submissions against declarative field schemas.
package forms

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Annany2002/nebula-uploads/internal/core"
	"github.com/Annany2002/nebula-uploads/internal/domain"
)

// Messages shared by every field kind.
const (
	MsgRequired      = "This field is required."
	MsgInvalidChoice = "Not a valid choice"
	MsgInvalidInt    = "Not a valid integer value."
)

// Kind selects how a raw form value is parsed.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindChoice
	KindJSONList
	KindCommaList
	KindFile
	KindFiles
	KindDatabase
)

var kindNames = map[Kind]string{
	KindString:    "string",
	KindInt:       "integer",
	KindBool:      "boolean",
	KindChoice:    "select",
	KindJSONList:  "json_list",
	KindCommaList: "comma_list",
	KindFile:      "file",
	KindFiles:     "files",
	KindDatabase:  "database",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON form descriptions.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// File is one uploaded file as seen by the rules.
type File struct {
	Name string
	Size int64
}

// Submission is the raw input of a form post.
type Submission struct {
	Values map[string][]string
	Files  map[string][]File
}

// Rule is one predicate with the message reported when it fails.
// Tag rules run through the validator against the parsed value; Check rules are plain
// predicates and are used for values the validator cannot address (files).
type Rule struct {
	Tag     string
	Check   func(value any) bool
	Message string
}

// Choice is an option of a select field.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field declares one form input.
type Field struct {
	Name        string
	Label       string
	Description string
	Kind        Kind
	Required    bool
	Default     any
	Choices     []Choice
	Rules       []Rule
	Bind        func(r *domain.UploadRequest, value any)
}

// Schema is the ordered field set of one upload form.
type Schema struct {
	Format domain.FileFormat
	Fields []Field
}

// Values holds parsed field values keyed by field name.
type Values map[string]any

// FieldErrors collects validation failures per field, in rule order.
type FieldErrors map[string][]string

// Add records a message for a field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e FieldErrors) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e[name], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Engine evaluates schemas. It is safe for concurrent use once built.
type Engine struct {
	validate *validator.Validate
}

// NewEngine creates an Engine with the identifier rules registered as validator tags.
func NewEngine() *Engine {
	v := validator.New()
	mustRegister(v, "csv_table_name", func(fl validator.FieldLevel) bool {
		return core.IsValidCSVTableName(fl.Field().String())
	})
	mustRegister(v, "no_schema", func(fl validator.FieldLevel) bool {
		return core.IsUnqualifiedName(fl.Field().String())
	})
	return &Engine{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("forms: registering validator tag %q: %v", tag, err))
	}
}

// Validate parses and checks every field of the schema. Databases is the candidate set
// for database fields. All failures are collected; on any failure the returned error is
// a FieldErrors and the values must not be used.
func (e *Engine) Validate(schema *Schema, sub Submission, databases []domain.DatabaseTarget) (Values, error) {
	values := make(Values, len(schema.Fields))
	errs := make(FieldErrors)

	for _, f := range schema.Fields {
		value, present, msg := parse(f, sub, databases)
		if msg != "" {
			errs.Add(f.Name, msg)
			continue
		}
		if !present {
			if f.Required {
				errs.Add(f.Name, MsgRequired)
				continue
			}
			if f.Default != nil {
				values[f.Name] = cloneDefault(f.Default)
			}
			continue
		}

		for _, rule := range f.Rules {
			if !e.passes(rule, value) {
				errs.Add(f.Name, rule.Message)
			}
		}
		values[f.Name] = value
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

func (e *Engine) passes(rule Rule, value any) bool {
	if files, ok := value.([]File); ok {
		for _, file := range files {
			if !e.passes(rule, file) {
				return false
			}
		}
		return true
	}
	if rule.Tag != "" {
		return e.validate.Var(value, rule.Tag) == nil
	}
	if rule.Check != nil {
		return rule.Check(value)
	}
	return true
}

// Bind copies parsed values into a request through each field's binder.
func (s *Schema) Bind(values Values, r *domain.UploadRequest) {
	for _, f := range s.Fields {
		if f.Bind == nil {
			continue
		}
		if v, ok := values[f.Name]; ok {
			f.Bind(r, v)
		}
	}
}

// parse returns the typed value, whether the field carried a value at all,
// and a message when the raw value could not be parsed.
func parse(f Field, sub Submission, databases []domain.DatabaseTarget) (any, bool, string) {
	switch f.Kind {
	case KindFile, KindFiles:
		var files []File
		for _, file := range sub.Files[f.Name] {
			if file.Name != "" {
				files = append(files, file)
			}
		}
		if len(files) == 0 {
			return nil, false, ""
		}
		if f.Kind == KindFile {
			files = files[:1]
		}
		return files, true, ""
	case KindBool:
		raw, ok := first(sub.Values, f.Name)
		return ok && isTruthy(raw), true, ""
	}

	raw, ok := first(sub.Values, f.Name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, false, ""
	}

	switch f.Kind {
	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, false, MsgInvalidInt
		}
		return n, true, ""
	case KindChoice:
		for _, c := range f.Choices {
			if c.Value == raw {
				return raw, true, ""
			}
		}
		return nil, false, MsgInvalidChoice
	case KindDatabase:
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, false, MsgInvalidChoice
		}
		for _, db := range databases {
			if db.ID == id {
				return db, true, ""
			}
		}
		return nil, false, MsgInvalidChoice
	case KindJSONList:
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, false, fmt.Sprintf("Not a valid JSON list of strings: %v", err)
		}
		return list, true, ""
	case KindCommaList:
		var list []string
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				list = append(list, p)
			}
		}
		if len(list) == 0 {
			return nil, false, ""
		}
		return list, true, ""
	default:
		return raw, true, ""
	}
}

func first(values map[string][]string, name string) (string, bool) {
	v, ok := values[name]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// isTruthy follows checkbox semantics: anything but an explicit false value is true.
func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "false", "0", "off", "no", "n":
		return false
	}
	return true
}

func cloneDefault(v any) any {
	if list, ok := v.([]string); ok {
		return append([]string(nil), list...)
	}
	return v
}
