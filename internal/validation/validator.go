package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one failed field of a request DTO
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Errors is returned by Validator.Struct when one or more fields fail
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validator validates request structs using `validate` tags. Field names in
// messages follow the json tag.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the custom tags registered
func New() *Validator {
	v := validator.New()

	v.RegisterValidation("safe_filename", isSafeFilename)
	v.RegisterValidation("username", isUsername)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates s. Field failures are returned as Errors; anything else
// (such as a non-struct argument) is returned unchanged.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: formatFieldError(fe),
		})
	}
	return out
}

// Var validates a single value against a tag expression
func (v *Validator) Var(field string, value interface{}, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Message: formatMessage(field, fe.Tag(), fe.Param()),
		})
	}
	return out
}

func formatFieldError(err validator.FieldError) string {
	return formatMessage(err.Field(), err.Tag(), err.Param())
}

func formatMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, param)
	case "safe_filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	case "username":
		return fmt.Sprintf("%s may only contain letters, digits, '.', '_', '-' and '@'", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// isSafeFilename rejects path separators and traversal
func isSafeFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" {
		return true
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return false
	}
	return len(filename) <= 255
}

func isUsername(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '.', ch == '_', ch == '-', ch == '@':
		default:
			return false
		}
	}
	return true
}
