package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aldoetobex/jis-backend/pkg/models"
)

var (
	v *validator.Validate

	// CIN: 3–40 chars, alphanumerics plus dash and slash, e.g. CR-2024-001.
	reCIN      = regexp.MustCompile(`^[A-Za-z0-9/-]{3,40}$`)
	reUsername = regexp.MustCompile(`^[A-Za-z0-9_.]{3,60}$`)
)

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

	// Custom: case identification number
	_ = v.RegisterValidation("cin", func(fl validator.FieldLevel) bool {
		val := strings.TrimSpace(fl.Field().String())
		if val == "" { // let required/omitempty handle empty
			return true
		}
		return reCIN.MatchString(val)
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return reUsername.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})

	_ = v.RegisterValidation("hearingtype", func(fl validator.FieldLevel) bool {
		return models.HearingType(fl.Field().String()).Valid()
	})
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

			case "datetime":
				out[field] = append(out[field], "Invalid date (use YYYY-MM-DD)")

			case "uuid", "uuid4":
				out[field] = append(out[field], "Invalid UUID format")

			case "cin":
				out[field] = append(out[field], "Invalid CIN format (letters, digits, dash or slash, e.g. “CR-2024-001”)")

			case "username":
				out[field] = append(out[field], "Username may only contain letters, digits, dot and underscore")

			case "role":
				out[field] = append(out[field], "Role must be judge, lawyer or registrar")

			case "hearingtype":
				out[field] = append(out[field], "Hearing type must be preliminary, trial, appeal or other")

			default:
				// Fallback to original error text if we missed a tag
				out[field] = append(out[field], e.Error())
			}
		}
		return out, nil
	}
	return nil, nil
}
