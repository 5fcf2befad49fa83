package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Type:    ErrTypeSVN,
				Message: "svn log failed",
			},
			expected: "svn log failed",
		},
		{
			name: "error with cause",
			err: &AppError{
				Type:    ErrTypeSVN,
				Message: "svn log failed",
				Cause:   errors.New("exit status 1"),
			},
			expected: "svn log failed: exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Type:    ErrTypeIO,
		Message: "wrapper error",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
}

func TestAppError_WithSuggestion(t *testing.T) {
	err := New(ErrTypeConfig, "test error")
	suggestion := "try this solution"

	result := err.WithSuggestion(suggestion)

	assert.Equal(t, suggestion, result.Suggestion)
	assert.Same(t, err, result)
}

func TestNewAndWrap(t *testing.T) {
	err := New(ErrTypeParse, "test message")
	assert.Equal(t, ErrTypeParse, err.Type)
	assert.Equal(t, "test message", err.Message)
	assert.Nil(t, err.Cause)
	assert.False(t, err.Retryable)

	cause := errors.New("original error")
	wrapped := Wrap(ErrTypeReport, "wrapped message", cause)
	assert.Equal(t, ErrTypeReport, wrapped.Type)
	assert.Equal(t, cause, wrapped.Cause)
	assert.False(t, wrapped.Retryable)

	formatted := Wrapf(ErrTypeIO, cause, "open %s", "log.txt")
	assert.Equal(t, "open log.txt: original error", formatted.Error())

	retryable := WrapRetryable(ErrTypeReport, "sink failed", cause)
	assert.True(t, retryable.IsRetryable())
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		errType ErrorType
	}{
		{"ErrSVNNotInstalled", ErrSVNNotInstalled, ErrTypeSVN},
		{"ErrSVNTooOld", ErrSVNTooOld, ErrTypeSVN},
		{"ErrInvalidConfig", ErrInvalidConfig, ErrTypeConfig},
		{"ErrInvalidInput", ErrInvalidInput, ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.False(t, tt.err.Retryable)
		})
	}
	assert.NotEmpty(t, ErrSVNNotInstalled.Suggestion)
}

func TestIsAndAs(t *testing.T) {
	err1 := New(ErrTypeSVN, "error 1")
	err2 := fmt.Errorf("wrapped: %w", err1)

	assert.True(t, Is(err2, err1))
	assert.False(t, Is(err1, ErrSVNNotInstalled))

	var target *AppError
	assert.True(t, As(err2, &target))
	assert.Equal(t, err1, target)
}

func TestGetType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"AppError", New(ErrTypeSVN, "test"), ErrTypeSVN},
		{"wrapped AppError", fmt.Errorf("wrapped: %w", New(ErrTypeReport, "test")), ErrTypeReport},
		{"standard error", errors.New("standard error"), ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetType(tt.err))
		})
	}
}

func TestIsType(t *testing.T) {
	inner := Wrap(ErrTypeReport, "csv write failed", errors.New("disk full"))
	outer := Wrap(ErrTypeParse, "finalize r12", inner)

	assert.True(t, IsType(outer, ErrTypeParse))
	assert.True(t, IsType(outer, ErrTypeReport))
	assert.False(t, IsType(outer, ErrTypeSVN))
	assert.False(t, IsType(errors.New("plain"), ErrTypeReport))
	assert.False(t, IsType(nil, ErrTypeReport))

	joined := Join(errors.New("plain"), inner)
	assert.True(t, IsType(joined, ErrTypeReport))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(WrapRetryable(ErrTypeReport, "x", nil)))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", WrapRetryable(ErrTypeReport, "x", nil))))
	assert.False(t, IsRetryable(New(ErrTypeSVN, "svn error")))
	assert.False(t, IsRetryable(errors.New("standard error")))
}

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"error with suggestion", New(ErrTypeSVN, "test").WithSuggestion("try this"), "try this"},
		{"error without suggestion", New(ErrTypeSVN, "test"), ""},
		{"wrapped error with suggestion", fmt.Errorf("wrapped: %w", New(ErrTypeSVN, "test").WithSuggestion("help")), "help"},
		{"standard error", errors.New("standard error"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetSuggestion(tt.err))
		})
	}
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "report", ErrTypeReport.String())
	assert.Equal(t, "svn", ErrTypeSVN.String())
	assert.Equal(t, "unknown", ErrTypeUnknown.String())
}
