package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground validator
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// New creates a new validator instance
func New() *Validator {
	v := validator.New()

	// Register custom tag name function to use json tags
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("month", validateMonth)
	_ = v.RegisterValidation("plan", validatePlan)

	return &Validator{
		validate: v,
	}
}

// validateMonth accepts YYYY-MM month keys
func validateMonth(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01", fl.Field().String())
	return err == nil
}

func validatePlan(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "monthly", "yearly":
		return true
	}
	return false
}

// Validate validates a struct
func (v *Validator) Validate(i interface{}) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if err := v.validate.Struct(i); !errors.As(err, &fieldErrs) {
		return nil
	}

	validationErrors := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ve := ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: msgForTag(fe),
		}
		// Rejected values are echoed back to the client, secrets excepted.
		if !strings.Contains(fe.Field(), "password") {
			ve.Value = fmt.Sprintf("%v", fe.Value())
		}
		validationErrors = append(validationErrors, ve)
	}
	return validationErrors
}

// msgForTag returns a human-readable message for a validation tag
func msgForTag(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "month":
		return fmt.Sprintf("%s must be a month in YYYY-MM format", field)
	case "plan":
		return fmt.Sprintf("%s must be monthly or yearly", field)
	default:
		return fmt.Sprintf("%s failed validation for tag: %s", field, fe.Tag())
	}
}
