package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, err := range v {
		if err.Param != "" {
			parts[i] = err.Field + " failed on " + err.Tag + "=" + err.Param
		} else {
			parts[i] = err.Field + " failed on " + err.Tag
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct validates a struct using registered rules.
func ValidateStruct(s interface{}) error {
	return convert(getValidator().Struct(s))
}

// ValidateVar validates a single value against a tag expression such as "required,email".
func ValidateVar(value interface{}, tag string) error {
	return convert(getValidator().Var(value, tag))
}

// IsEmail reports whether the value is a syntactically valid email address.
func IsEmail(value string) bool {
	return ValidateVar(value, "required,email") == nil
}

func convert(err error) error {
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, ValidationError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures
	}

	return err
}

// invitation codes are exactly six ASCII digits
func isInvitationCode(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) != 6 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "" {
				return fld.Name
			}

			comma := strings.Index(name, ",")
			if comma != -1 {
				name = name[:comma]
			}

			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("invitecode", isInvitationCode)
		_ = validate.RegisterValidation("notblank", notBlank)
	})
	return validate
}
