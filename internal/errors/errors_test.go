package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeValidation, "utterance is empty")
		assert.Equal(t, "VALIDATION_ERROR: utterance is empty", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeStoreUnavailable, "Session store unavailable", cause)
		assert.Contains(t, err.Error(), "STORE_UNAVAILABLE")
		assert.Contains(t, err.Error(), "Session store unavailable")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("Wrap keeps cause for errors.Is", func(t *testing.T) {
		cause := errors.New("original error")
		err := Wrap(ErrCodeInternal, "Something went wrong", cause)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "userRequest.user.id"}
		err := New(ErrCodeMissingRequired, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"MissingRequired", func() *AppError { return MissingRequired("user id") }, ErrCodeMissingRequired},
		{"UpstreamTransient", func() *AppError { return UpstreamTransient("upstage", errors.New("503")) }, ErrCodeUpstreamTransient},
		{"UpstreamMalformed", func() *AppError { return UpstreamMalformed("upstage", "no choices") }, ErrCodeUpstreamMalformed},
		{"UpstreamRejected", func() *AppError { return UpstreamRejected("upstage", 401) }, ErrCodeUpstreamRejected},
		{"StoreUnavailable", func() *AppError { return StoreUnavailable(errors.New("dial tcp")) }, ErrCodeStoreUnavailable},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestDatabase(t *testing.T) {
	t.Run("wraps database error", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Database(cause)
		assert.Equal(t, ErrCodeDatabase, err.Code)
		assert.Equal(t, cause, err.Unwrap())
	})
}

func TestAsAppError(t *testing.T) {
	t.Run("finds fmt-wrapped AppError", func(t *testing.T) {
		wrapped := fmt.Errorf("call model: %w", UpstreamMalformed("upstage", "empty"))
		appErr, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeUpstreamMalformed, appErr.Code)
	})

	t.Run("rejects standard error", func(t *testing.T) {
		_, ok := AsAppError(errors.New("standard error"))
		assert.False(t, ok)
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		err := New(ErrCodeUpstreamMalformed, "test")
		assert.Equal(t, ErrCodeUpstreamMalformed, GetCode(err))
	})

	t.Run("returns ErrCodeInternal for standard error", func(t *testing.T) {
		err := errors.New("standard error")
		assert.Equal(t, ErrCodeInternal, GetCode(err))
	})
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"plain error", errors.New("boom"), false},
		{"transient", UpstreamTransient("upstage", nil), true},
		{"wrapped transient", fmt.Errorf("attempt: %w", UpstreamTransient("redis", nil)), true},
		{"rejected", UpstreamRejected("upstage", 400), false},
		{"malformed", UpstreamMalformed("upstage", "bad json"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsTransient(tc.err))
		})
	}
}

func TestMissingRequiredMessage(t *testing.T) {
	t.Run("formats field name correctly", func(t *testing.T) {
		err := MissingRequired("userRequest.user.id")
		assert.Equal(t, "userRequest.user.id is required", err.Message)
		assert.Equal(t, map[string]string{"field": "userRequest.user.id"}, err.Details)
	})
}
