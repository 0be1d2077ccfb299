package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation(t *testing.T) {
	err := Validation("missing variant")

	assert.Equal(t, CodeValidation, err.Code)
	assert.True(t, IsValidation(err))
	assert.False(t, IsDataIntegrity(err))
}

func TestDataIntegrity(t *testing.T) {
	err := DataIntegrity("variable value has no specialization").
		WithDetail("value_id", "a2e6c1d0")

	assert.Equal(t, CodeDataIntegrity, err.Code)
	assert.Equal(t, "a2e6c1d0", err.Details["value_id"])
	assert.True(t, IsDataIntegrity(err))
	assert.False(t, IsValidation(err))
}

func TestWrappedAppErrorIsExtracted(t *testing.T) {
	wrapped := fmt.Errorf("create failed: %w", Validation("missing variant"))

	appErr := GetAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeValidation, appErr.Code)
	assert.True(t, IsValidation(wrapped))
}

func TestGetAppErrorOnPlainError(t *testing.T) {
	assert.Nil(t, GetAppError(fmt.Errorf("plain")))
	assert.False(t, IsValidation(nil))
}
