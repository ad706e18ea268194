package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/utils/slug"
	"github.com/go-playground/validator/v10"
)

var (
	// FacultyNameRegex allows letters (accented included), spaces, hyphens and apostrophes
	FacultyNameRegex = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s'-]+$`)

	// HexColorRegex is a 6-digit CSS hex color
	HexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// Validator wraps the go-playground validator with the FlashPrint rules
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New()

	// Report json names so errors match the request payload
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("faculty_name", func(fl validator.FieldLevel) bool {
		return FacultyNameRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.IsValid(fl.Field().String())
	})
	_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
		return HexColorRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("promotion", func(fl validator.FieldLevel) bool {
		return model.Promotion(fl.Field().String()).IsValid()
	})

	return &Validator{validate: v}
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationErrors converts validation errors to a field -> message map
func FormatValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return out
	}

	for _, e := range validationErrs {
		out[e.Field()] = message(e)
	}
	return out
}

// FirstError returns the message of the first failing field, in struct order
func FirstError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		return message(validationErrs[0])
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Details renders validation errors as a stable "field: message; ..." string
func Details(err error) string {
	fields := FormatValidationErrors(err)
	if len(fields) == 0 {
		if err != nil {
			return err.Error()
		}
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fields[k]))
	}
	return strings.Join(parts, "; ")
}

func message(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid identifier", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "faculty_name":
		return fmt.Sprintf("%s may only contain letters, spaces, hyphens and apostrophes", field)
	case "slug":
		return fmt.Sprintf("%s may only contain lowercase letters, digits and hyphens", field)
	case "hexcolor6":
		return fmt.Sprintf("%s must be a hex color like #1A2B3C", field)
	case "promotion":
		return "Année invalide"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
