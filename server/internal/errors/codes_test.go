package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInvalidArgument, http.StatusBadRequest},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeUpstream, http.StatusBadGateway},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.code.HTTPStatus(), tt.code)
	}
}

func TestAPIErrorChain(t *testing.T) {
	err := Upstream("llm call failed", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "[UPSTREAM_ERROR] llm call failed: unexpected EOF", err.Error())

	wrapped := fmt.Errorf("handler: %w", NotFound("item not found"))
	assert.True(t, IsCode(wrapped, ErrCodeNotFound))
	assert.False(t, IsCode(wrapped, ErrCodeConflict))
	assert.Equal(t, ErrCodeNotFound, GetCodeFromError(wrapped, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(io.EOF, ErrCodeInternal))
}

func TestWithContext(t *testing.T) {
	err := InvalidArgument("bad limit").WithContext("field", "limit").WithContext("max", 100)
	assert.Equal(t, map[string]any{"field": "limit", "max": 100}, err.Context)
}
