package utils

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

var errUUIDRequired = validation.NewError("validation_uuid_required", "is required")

// RequiredUUID rejects uuid.Nil. validation.Required does not, because a
// UUID is a fixed-size array and never "empty" to ozzo.
var RequiredUUID = validation.By(func(value any) error {
	switch v := value.(type) {
	case uuid.UUID:
		if v == uuid.Nil {
			return errUUIDRequired
		}
	case *uuid.UUID:
		if v == nil || *v == uuid.Nil {
			return errUUIDRequired
		}
	}
	return nil
})
