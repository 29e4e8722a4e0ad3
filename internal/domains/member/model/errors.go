package model

import (
	"errors"

	"library-backend/pkg/apperror"
)

var ErrMemberNotFound = apperror.NotFound("MEMBER_NOT_FOUND", "member not found")

func IsMemberNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound)
}
