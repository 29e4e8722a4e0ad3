package apperror

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FromValidation converts the result of an ozzo Validate() call into a
// KindValidation error carrying one message per field. nil stays nil.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			fields[field] = fieldErr.Error()
		}
		return Validation("invalid request payload", fields)
	}

	// validation.InternalError là lỗi của rule, không phải của input
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return Internal("validation rule failed", internal.InternalError())
	}

	return Validation(err.Error(), nil)
}
