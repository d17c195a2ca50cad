package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("symbol is required")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Equal(t, "symbol is required", err.Message)
	assert.Nil(t, err.Cause)
	assert.NotNil(t, err.Context)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Equal(t, "validation: symbol is required", err.Error())
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("unknown symbol")

	assert.Equal(t, TypeNotFound, err.Type)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
	assert.Contains(t, err.Error(), "not_found")
}

func TestUnavailableError(t *testing.T) {
	err := UnavailableError("at capacity", domain.ErrConnectionLimited)

	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus())
	assert.ErrorIs(t, err, domain.ErrConnectionLimited)
}

func TestInternalError(t *testing.T) {
	cause := fmt.Errorf("snapshot failed")
	err := InternalError("failed to read prices", cause)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Contains(t, err.Error(), "snapshot failed")
}

func TestInternalErrorWithoutCause(t *testing.T) {
	err := InternalError("something went wrong", nil)

	assert.NotContains(t, err.Error(), "<nil>")
}

func TestUnknownTypeMapsTo500(t *testing.T) {
	err := &Error{Type: ErrorType("bogus"), Message: "?"}
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

func TestWithContext(t *testing.T) {
	err := NotFoundError("unknown symbol").
		WithContext("symbol", "XYZ").
		WithContext("source", "api")

	assert.Equal(t, "XYZ", err.Context["symbol"])
	assert.Equal(t, "api", err.Context["source"])

	bare := &Error{Type: TypeValidation}
	bare.WithContext("k", 1)
	assert.Equal(t, 1, bare.Context["k"])
}

func TestToResponse(t *testing.T) {
	resp := ValidationError("bad").WithContext("field", "symbol").ToResponse()

	assert.Equal(t, "bad", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, "symbol", resp.Context["field"])
}

func TestAsStructuredError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsStructuredError(nil))
	})

	t.Run("already structured", func(t *testing.T) {
		orig := NotFoundError("missing")
		assert.Same(t, orig, AsStructuredError(orig))
	})

	t.Run("wrapped structured", func(t *testing.T) {
		orig := ValidationError("bad")
		got := AsStructuredError(fmt.Errorf("handler: %w", orig))
		assert.Same(t, orig, got)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		got := AsStructuredError(fmt.Errorf("lookup XYZ: %w", domain.ErrUnknownSymbol))
		assert.Equal(t, TypeNotFound, got.Type)
	})

	t.Run("connection limited", func(t *testing.T) {
		got := AsStructuredError(domain.ErrConnectionLimited)
		assert.Equal(t, TypeUnavailable, got.Type)
	})

	t.Run("plain error", func(t *testing.T) {
		cause := errors.New("boom")
		got := AsStructuredError(cause)
		require.NotNil(t, got)
		assert.Equal(t, TypeInternal, got.Type)
		assert.Equal(t, "internal server error", got.Message)
		assert.ErrorIs(t, got, cause)
	})
}
