// Package validate checks request bodies against their struct tags and
// normalises free-text query parameters.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"storefront/internal/apperr"
)

var (
	reUsername = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)
	reSKU      = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	rePhone    = regexp.MustCompile(`^\+?[0-9 ()-]{5,20}$`)
	reQ        = regexp.MustCompile(`^[\p{L}\p{N} _'.,&-]{1,100}$`)
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON names.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		must(v.RegisterValidation("username", regexTag(reUsername)))
		must(v.RegisterValidation("sku", regexTag(reSKU)))
		must(v.RegisterValidation("phone", regexTag(rePhone)))
	})
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func regexTag(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Struct validates s and returns a Validation error naming the first field
// that failed.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return apperr.Wrap(err, apperr.Validation, "Invalid request body")
	}
	return apperr.Wrap(err, apperr.Validation, message(ves[0]))
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required", "required_with":
		return fmt.Sprintf("%s is required", f)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", f)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", f)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, fe.Param())
	case "username":
		return fmt.Sprintf("%s may contain letters, digits, '.', '_' and '-' (3-50 characters)", f)
	case "sku":
		return fmt.Sprintf("%s may contain letters, digits, '_' and '-'", f)
	default:
		return fmt.Sprintf("%s is invalid", f)
	}
}

// Q trims a search query and rejects characters outside a conservative set.
// Queries longer than 100 runes are cut.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s, reQ.MatchString(s)
}
