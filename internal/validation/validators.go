package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	boothIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,31}$`)
	phonePattern   = regexp.MustCompile(`^[0-9]{4,15}$`)
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("booth_id", validateBoothID); err != nil {
		panic(fmt.Sprintf("failed to register booth_id validator: %v", err))
	}
	if err := Validate.RegisterValidation("phone", validatePhone); err != nil {
		panic(fmt.Sprintf("failed to register phone validator: %v", err))
	}
	if err := Validate.RegisterValidation("rating", validateRating); err != nil {
		panic(fmt.Sprintf("failed to register rating validator: %v", err))
	}
}

func validateBoothID(fl validator.FieldLevel) bool {
	return IsBoothID(fl.Field().String())
}

func validatePhone(fl validator.FieldLevel) bool {
	return IsPhone(fl.Field().String())
}

// validateRating accepts integers from 1 to 5.
func validateRating(fl validator.FieldLevel) bool {
	v := fl.Field().Int()
	return v >= 1 && v <= 5
}

// IsBoothID reports whether s looks like a catalog booth id such as "A1234".
func IsBoothID(s string) bool {
	return boothIDPattern.MatchString(s)
}

// IsPhone reports whether s is a digits-only phone identifier.
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ValidateRating validates a 1-5 rating value
func ValidateRating(name string, v int) error {
	if v < 1 || v > 5 {
		return &Error{Fields: map[string]string{name: "must be between 1 and 5"}}
	}
	return nil
}

// Error lists the fields that failed validation and why.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Struct validates v and converts validator errors into *Error.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate: %w", err)
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldName(fe)] = describe(fe)
	}
	return out
}

// fieldName uses the json tag path, e.g. "interests[과일]" rather than "Interests[과일]".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i != -1 {
		ns = ns[i+1:]
	}
	return toSnake(ns)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "rating":
		return "must be between 1 and 5"
	case "booth_id":
		return "is not a valid booth id"
	case "phone":
		return "must contain digits only"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func toSnake(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
			continue
		}
		b.WriteRune(r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return b.String()
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
