package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		errType ErrorType
		status  int
		message string
	}{
		{"validation", NewValidationError("bad input"), ErrorTypeValidation, http.StatusBadRequest, "bad input"},
		{"not found", NewNotFoundError("node"), ErrorTypeNotFound, http.StatusNotFound, "node not found"},
		{"conflict", NewConflictError("busy"), ErrorTypeConflict, http.StatusConflict, "busy"},
		{"internal", NewInternalError("boom"), ErrorTypeInternal, http.StatusInternalServerError, "boom"},
		{"store", NewStoreError("put", errors.New("timeout")), ErrorTypeStore, http.StatusInternalServerError, "store operation 'put' failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.NotEmpty(t, tt.err.StackTrace)
		})
	}
}

func TestTypeChecksSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewNotFoundError("node"))

	assert.True(t, IsAppError(err))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.False(t, IsStore(err))
	assert.False(t, IsConflict(err))
	assert.Nil(t, GetAppError(errors.New("plain")))
}

func TestStoreErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStoreError("scan", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "store operation 'scan' failed: connection reset", PublicMessage(err))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "node not found", PublicMessage(fmt.Errorf("wrapped: %w", NewNotFoundError("node"))))
	assert.Equal(t, "plain failure", PublicMessage(errors.New("plain failure")))
	assert.Equal(t, "store operation 'ping' failed", PublicMessage(&AppError{Type: ErrorTypeStore, Message: "store operation 'ping' failed"}))
}

func TestWithHelpers(t *testing.T) {
	err := NewValidationError("bad").WithCode("BAD").WithDetail("field", "name").WithCause(errors.New("root"))

	assert.Equal(t, "BAD", err.Code)
	assert.Equal(t, "name", err.Details["field"])
	assert.EqualError(t, err, "VALIDATION: bad (caused by: root)")
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	assert.False(t, v.HasErrors())
	assert.Nil(t, v.ToAppError())

	v.Add("[1].name", "name is required")
	v.Add("[0].type", "type is required")
	v.Add("[1].name", "name must be a string")

	assert.Equal(t, []string{"[0].type", "[1].name"}, v.Fields())

	err := v.ToAppError()
	require.Error(t, err)
	appErr := GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeValidation, appErr.Type)
	assert.Equal(t, "FIELD_VALIDATION_ERROR", appErr.Code)
	assert.Len(t, appErr.Details["violations"], 3)
	assert.Contains(t, appErr.Message, "name is required; type is required")
}
