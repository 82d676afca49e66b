package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var v *validator.Validate

func init() {
	v = validator.New()

	// Use JSON tag as the field name in error output
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Custom: password strength (>=8 chars, upper + lower + digit).
	// Length is left to min/max tags so the message stays specific.
	_ = v.RegisterValidation("strongpw", func(fl validator.FieldLevel) bool {
		return HasPasswordClasses(fl.Field().String())
	})

	// Custom: card expiry month/year pair is checked in handlers; here we only
	// verify the year is not in the past.
	_ = v.RegisterValidation("expyear", func(fl validator.FieldLevel) bool {
		y := int(fl.Field().Int())
		if y == 0 {
			return true // omitempty
		}
		return y >= time.Now().Year()
	})
}

// HasPasswordClasses reports whether s contains at least one uppercase letter,
// one lowercase letter, and one digit.
func HasPasswordClasses(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// Validate returns map[field][]messages (Laravel-like)
func Validate(s any) (map[string][]string, error) {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		out := make(map[string][]string)
		for _, e := range ve {
			field := e.Field() // already mapped from json tag

			switch e.Tag() {
			case "required":
				out[field] = append(out[field], "This field is required")

			case "email":
				out[field] = append(out[field], "Invalid email format")

			case "min":
				if e.Kind() == reflect.String {
					out[field] = append(out[field], fmt.Sprintf("Must be at least %s characters", e.Param()))
				} else {
					out[field] = append(out[field], fmt.Sprintf("Must be at least %s", e.Param()))
				}

			case "max":
				if e.Kind() == reflect.String {
					out[field] = append(out[field], fmt.Sprintf("Must be at most %s characters", e.Param()))
				} else {
					out[field] = append(out[field], fmt.Sprintf("Must be at most %s", e.Param()))
				}

			case "oneof":
				out[field] = append(out[field], "Value is not allowed")

			case "uuid", "uuid4":
				out[field] = append(out[field], "Invalid UUID format")

			case "gte":
				out[field] = append(out[field], fmt.Sprintf("Must be greater than or equal to %s", e.Param()))

			case "lte":
				out[field] = append(out[field], fmt.Sprintf("Must be less than or equal to %s", e.Param()))

			case "strongpw":
				out[field] = append(out[field], "Password must contain an uppercase letter, a lowercase letter, and a digit")

			case "expyear":
				out[field] = append(out[field], "Card expiry year is in the past")

			case "datetime":
				out[field] = append(out[field], fmt.Sprintf("Must match format %s", e.Param()))

			default:
				// Fallback to original error text if we missed a tag
				out[field] = append(out[field], e.Error())
			}
		}
		return out, nil
	}
	return nil, nil
}
