package validator

import (
	"context"
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	global *validator.Validate

	// Digits with optional leading +, the shape WhatsApp deep links accept.
	whatsappRegex = regexp.MustCompile(`^\+?[0-9]{6,15}$`)
	timezoneRegex = regexp.MustCompile(`^[A-Za-z_]+(/[A-Za-z0-9+\-_]+)+$|^UTC$`)
)

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrUnknownValidation  = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("whatsapp", validateWhatsApp)
	_ = v.RegisterValidation("timezone_name", validateTimezoneName)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validateWhatsApp(fl validator.FieldLevel) bool {
	return whatsappRegex.MatchString(fl.Field().String())
}

func validateTimezoneName(fl validator.FieldLevel) bool {
	return timezoneRegex.MatchString(fl.Field().String())
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return nil
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "email", "whatsapp", "timezone_name":
		msg = ErrInvalidFormat
	case "required":
		msg = ErrFieldRequired
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	default:
		msg = ErrUnknownValidation
	}
	return errors.New(msg + ": " + ve.Namespace())
}
