package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// enumTags binds custom validation tags to the field vocabularies.
var enumTags = map[string]model.Enum{
	"city":          model.Cities,
	"property_type": model.PropertyTypes,
	"bhk":           model.BHKs,
	"purpose":       model.Purposes,
	"timeline":      model.Timelines,
	"source":        model.Sources,
	"status":        model.Statuses,
	"sort_by":       model.SortFields,
	"sort_order":    model.SortOrders,
}

// Get returns a singleton validator instance
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Register validation for extracting JSON field names instead of struct field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		for tag, enum := range enumTags {
			enum := enum
			_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return enum.Contains(fl.Field().String())
			})
		}
	})
	return validate
}

// Validate validates a struct and returns a *apperrors.ValidationError listing every failed field
func Validate(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(apperrors.FieldErrors, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields.Add(e.Field(), getErrorMessage(e))
	}
	return apperrors.NewValidationError(fields)
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return Get().Var(field, tag)
}

// getErrorMessage returns a user-friendly error message for a validation tag
func getErrorMessage(e validator.FieldError) string {
	if enum, ok := enumTags[e.Tag()]; ok {
		return invalidEnumMessage(enum)
	}
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "datetime":
		return "must be an ISO 8601 date-time"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("validation tag '%s' with value '%s' failed", e.Tag(), e.Value())
	}
}

func invalidEnumMessage(enum model.Enum) string {
	return fmt.Sprintf("Invalid %s. Expected one of: %s", enum.Name(), strings.Join(enum.Values(), ", "))
}
