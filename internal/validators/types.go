// Package validators provides the default validator for each field type
// and compiles declarative field rules into step validators.
package validators

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/mark3labs/stepform/internal/stepform"
)

// Field type tags understood by Defaults.
const (
	TypeText     = "text"
	TypeTextarea = "textarea"
	TypePassword = "password"
	TypeEmail    = "email"
	TypeURL      = "url"
	TypeNumber   = "number"
	TypeSlug     = "slug"
	TypeSelect   = "select"
	TypeBool     = "bool"
)

// Defaults returns the type tag -> validator dispatch table. Empty values
// pass every default; "required" is a rule, not a type.
func Defaults() map[string]stepform.FieldValidator {
	return map[string]stepform.FieldValidator{
		TypeText:     checkString,
		TypeTextarea: checkString,
		TypePassword: checkString,
		TypeSelect:   checkString,
		TypeEmail:    checkEmail,
		TypeURL:      checkURL,
		TypeNumber:   checkNumber,
		TypeSlug:     checkSlug,
		TypeBool:     checkBool,
	}
}

// Known reports whether tag has a default validator.
func Known(tag string) bool {
	_, ok := Defaults()[tag]
	return ok
}

// IsEmpty reports whether v counts as "no value" for required checks.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	return false
}

// String renders v the way text inputs display it.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Number converts v to a float64.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Bool converts v to a bool.
func Bool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}

func checkString(_ context.Context, v any) (string, error) {
	switch v.(type) {
	case nil, string:
		return "", nil
	}
	return "must be text", nil
}

func checkEmail(_ context.Context, v any) (string, error) {
	if IsEmpty(v) {
		return "", nil
	}
	s := strings.TrimSpace(String(v))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "must be a valid email address", nil
	}
	return "", nil
}

func checkURL(_ context.Context, v any) (string, error) {
	if IsEmpty(v) {
		return "", nil
	}
	u, err := url.Parse(strings.TrimSpace(String(v)))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "must be an absolute URL", nil
	}
	return "", nil
}

func checkNumber(_ context.Context, v any) (string, error) {
	if IsEmpty(v) {
		return "", nil
	}
	if _, ok := Number(v); !ok {
		return "must be a number", nil
	}
	return "", nil
}

func checkSlug(_ context.Context, v any) (string, error) {
	if IsEmpty(v) {
		return "", nil
	}
	if !slug.IsSlug(String(v)) {
		return fmt.Sprintf("must be a slug, e.g. %q", slug.Make(String(v))), nil
	}
	return "", nil
}

func checkBool(_ context.Context, v any) (string, error) {
	if v == nil {
		return "", nil
	}
	if _, ok := Bool(v); !ok {
		return "must be yes or no", nil
	}
	return "", nil
}
