package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *LoadError
		expected string
	}{
		{
			name: "error without cause",
			err: &LoadError{
				Code:    CodeInvalidRequest,
				Message: "invalid input",
			},
			expected: "INVALID_REQUEST: invalid input",
		},
		{
			name: "error with cause",
			err: &LoadError{
				Code:    CodeInvalidRequest,
				Message: "invalid input",
				Cause:   fmt.Errorf("underlying error"),
			},
			expected: "INVALID_REQUEST: invalid input (caused by: underlying error)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestLoadError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := &LoadError{
		Code:    CodeInvalidRequest,
		Message: "invalid input",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, &LoadError{Code: CodeInvalidRequest}))
}

func TestLoadError_Is(t *testing.T) {
	err1 := &LoadError{Code: CodeNotFound, Message: "not found"}
	err2 := &LoadError{Code: CodeNotFound, Message: "different message"}
	err3 := &LoadError{Code: CodeInvalidRequest, Message: "invalid"}
	stdErr := fmt.Errorf("standard error")

	assert.True(t, err1.Is(err2), "errors with same code should match")
	assert.False(t, err1.Is(err3), "errors with different codes should not match")
	assert.False(t, err1.Is(stdErr), "load error should not match standard error")
}

func TestLoadError_WithDetail(t *testing.T) {
	err := &LoadError{
		Code:    CodeInvalidRequest,
		Message: "invalid input",
	}

	err = err.WithDetail("column", "user.name").WithDetail("row", 42)

	assert.Equal(t, "user.name", err.Details["column"])
	assert.Equal(t, 42, err.Details["row"])
}

func TestNew(t *testing.T) {
	err := New(CodeInvalidRequest, "test message")
	assert.Equal(t, CodeInvalidRequest, err.Code)
	assert.Equal(t, "test message", err.Message)
	assert.Nil(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(CodeIngestFailed, "row %d is malformed", 7)
	assert.Equal(t, CodeIngestFailed, err.Code)
	assert.Equal(t, "row 7 is malformed", err.Message)
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(cause, CodeInvalidRequest, "wrapped message")

	assert.Equal(t, CodeInvalidRequest, err.Code)
	assert.Equal(t, "wrapped message", err.Message)
	assert.Equal(t, cause, err.Cause)

	// Test nil error
	assert.Nil(t, Wrap(nil, CodeInvalidRequest, "message"))
}

func TestWrapf(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrapf(cause, CodeInvalidRequest, "wrapped message %d", 42)

	assert.Equal(t, CodeInvalidRequest, err.Code)
	assert.Equal(t, "wrapped message 42", err.Message)
	assert.Equal(t, cause, err.Cause)

	// Test nil error
	assert.Nil(t, Wrapf(nil, CodeInvalidRequest, "message %d", 42))
}

func TestIsPrecondition(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "precondition error",
			err:      ErrInvalidBatchSize,
			expected: true,
		},
		{
			name:     "other load error",
			err:      ErrConnectionFailed,
			expected: false,
		},
		{
			name:     "standard error",
			err:      fmt.Errorf("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPrecondition(tt.err))
		})
	}
}

func TestIsConnectionFailed(t *testing.T) {
	assert.True(t, IsConnectionFailed(ErrConnectionFailed))
	assert.True(t, IsConnectionFailed(Wrap(fmt.Errorf("dial tcp: refused"), CodeConnectionFailed, "ping failed")))
	assert.False(t, IsConnectionFailed(ErrNilDestination))
	assert.False(t, IsConnectionFailed(fmt.Errorf("standard error")))
}

func TestIsCanceled(t *testing.T) {
	assert.True(t, IsCanceled(context.Canceled))
	assert.True(t, IsCanceled(fmt.Errorf("load aborted: %w", context.Canceled)))
	assert.True(t, IsCanceled(New(CodeCanceled, "import canceled")))
	assert.False(t, IsCanceled(ErrConnectionFailed))
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "load error",
			err:      ErrDestinationClosed,
			expected: CodeDestinationClosed,
		},
		{
			name:     "wrapped load error",
			err:      fmt.Errorf("outer: %w", ErrInvalidBatchSize),
			expected: CodeFailedPrecondition,
		},
		{
			name:     "standard error",
			err:      fmt.Errorf("standard error"),
			expected: CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetCode(tt.err))
		})
	}
}

func TestGetMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "load error",
			err:      ErrNilDestination,
			expected: "destination is nil",
		},
		{
			name:     "standard error",
			err:      fmt.Errorf("standard error"),
			expected: "standard error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetMessage(tt.err))
		})
	}
}

func TestCommonErrors(t *testing.T) {
	// Test that all common errors are properly initialized
	assert.Equal(t, CodeFailedPrecondition, ErrNilDestination.Code)
	assert.Equal(t, CodeFailedPrecondition, ErrInvalidBatchSize.Code)
	assert.Equal(t, CodeDestinationClosed, ErrDestinationClosed.Code)
	assert.Equal(t, CodeConnectionFailed, ErrConnectionFailed.Code)
	assert.Equal(t, CodeUnsupported, ErrUnsupportedFormat.Code)
}
