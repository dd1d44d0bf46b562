package utils

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/sestra24/recruitment-service/internal/errors"
	"github.com/sestra24/recruitment-service/internal/models"
)

var uaPhonePattern = regexp.MustCompile(`^\+380\d{9}$`)

// Validator wraps go-playground struct validation with the custom rules used
// by the recruitment funnel.
type Validator struct {
	structValidator *validator.Validate
}

// NewValidator creates the validator instance with all custom rules registered.
func NewValidator() *Validator {
	v := validator.New()
	registerCustomValidators(v)
	return &Validator{structValidator: v}
}

// Validate validates struct tags and converts failures into the shared
// ValidationErrors type so handlers can render field-scoped messages.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("ua_phone", validateUAPhone)
	validate.RegisterValidation("nurse_city", validateCity)
	validate.RegisterValidation("nurse_specialization", validateSpecialization)
	validate.RegisterValidation("document_kind", validateDocumentKind)

	// Report errors under the json field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateUAPhone accepts "+380" followed by exactly 9 digits.
func validateUAPhone(fl validator.FieldLevel) bool {
	return uaPhonePattern.MatchString(fl.Field().String())
}

func validateCity(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, city := range models.Cities {
		if city == value {
			return true
		}
	}
	return false
}

func validateSpecialization(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, spec := range models.Specializations {
		if string(spec) == value {
			return true
		}
	}
	return false
}

func validateDocumentKind(fl validator.FieldLevel) bool {
	return models.DocumentKind(fl.Field().String()).Valid()
}
