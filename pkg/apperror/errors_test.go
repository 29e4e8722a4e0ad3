package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	sentinel := NotFound("BOOK_NOT_FOUND", "book not found")
	wrapped := fmt.Errorf("%w: id=42", sentinel)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.True(t, errors.Is(wrapped, sentinel))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(errors.New("boom"), KindNotFound))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to insert loan", cause)

	assert.Equal(t, "failed to insert loan: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "book not found", NotFound("X", "book not found").Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:            http.StatusNotFound,
		KindConflict:            http.StatusConflict,
		KindBadRequest:          http.StatusBadRequest,
		KindValidation:          http.StatusBadRequest,
		KindUnprocessableEntity: http.StatusUnprocessableEntity,
		KindConfiguration:       http.StatusInternalServerError,
		KindInternal:            http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}

func TestFromValidation(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, FromValidation(nil))
	})

	t.Run("field errors become fields", func(t *testing.T) {
		err := FromValidation(validation.Errors{
			"quantity": errors.New("must be no less than 1"),
		})

		var appErr *Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, KindValidation, appErr.Kind)
		assert.Equal(t, "must be no less than 1", appErr.Fields["quantity"])
	})
}
