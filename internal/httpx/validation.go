package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/starosta-app/starosta-back/internal/models"
)

var emailCheck = validator.New()

// UseJSONFieldNames makes validator report fields by their json names so
// messages read "first_name" rather than "FirstName".
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// RegisterValidations adds the "loose_email" tag: the value must be a valid
// address once whitespace is stripped and it is lower-cased.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		return emailCheck.Var(models.NormalizeEmail(fl.Field().String()), "email") == nil
	})
}

// ValidationMessages turns a binding error into ordered, human-readable
// messages, one per failing field.
func ValidationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldMessage(fe))
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []string{fmt.Sprintf("%s has an invalid type.", Label(typeErr.Field))}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) {
		return []string{"Invalid request body."}
	}
	return []string{err.Error()}
}

func fieldMessage(fe validator.FieldError) string {
	label := Label(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email", "loose_email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure %s has no more than %s characters.", strings.ToLower(label), fe.Param())
	case "min":
		return fmt.Sprintf("Ensure %s has at least %s characters.", strings.ToLower(label), fe.Param())
	case "url", "http_url":
		return "Enter a valid URL."
	case "datetime":
		return fmt.Sprintf("%s has wrong format. Use %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, fe.Param())
	default:
		return label + " is invalid."
	}
}

// Label renders a json field name for messages: "first_name" -> "First name".
func Label(field string) string {
	return capitalizeFirst(strings.ReplaceAll(field, "_", " "))
}
