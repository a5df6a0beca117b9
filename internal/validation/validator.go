// Package validation checks use-case inputs before any I/O happens.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/BradenHooton/stayhub/internal/models"
	pkgauth "github.com/BradenHooton/stayhub/pkg/auth"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Validator wraps go-playground/validator and a bluemonday policy for free-text fields.
type Validator struct {
	validate *validator.Validate
	policy   *bluemonday.Policy
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return jsonFieldName(field.Tag.Get("json"), field.Name)
	})
	return &Validator{
		validate: v,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Struct validates s against its `validate` tags and reports the first failure
// as a *models.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return models.NewValidationError(fe.Field(), formatFieldError(fe))
	}
	return models.NewValidationError("", err.Error())
}

// Password applies the password policy to a new password.
func (v *Validator) Password(password string) error {
	if err := pkgauth.ValidatePassword(password); err != nil {
		return models.NewValidationError("password", err.Error())
	}
	return nil
}

// SanitizeName strips markup from a display name and collapses whitespace.
func (v *Validator) SanitizeName(name string) string {
	return strings.Join(strings.Fields(v.policy.Sanitize(name)), " ")
}

func jsonFieldName(tag, fallback string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return fallback
	}
	return name
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must contain digits only"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
