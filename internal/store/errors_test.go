package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("some error"),
			expected: false,
		},
		{
			name:     "ErrNotFound",
			err:      ErrNotFound,
			expected: true,
		},
		{
			name:     "wrapped ErrNotFound",
			err:      fmt.Errorf("failed to load: %w", ErrNotFound),
			expected: true,
		},
		{
			name:     "ErrCompanyNotFound",
			err:      ErrCompanyNotFound,
			expected: true,
		},
		{
			name:     "ErrNewsletterNotFound",
			err:      ErrNewsletterNotFound,
			expected: true,
		},
		{
			name:     "ErrQueueItemNotFound",
			err:      ErrQueueItemNotFound,
			expected: true,
		},
		{
			name:     "ErrNoPendingItems",
			err:      ErrNoPendingItems,
			expected: true,
		},
		{
			name:     "duplicate error is not a not-found error",
			err:      ErrDuplicate,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("some error"),
			expected: false,
		},
		{
			name:     "ErrDuplicate",
			err:      ErrDuplicate,
			expected: true,
		},
		{
			name:     "wrapped ErrDuplicate",
			err:      fmt.Errorf("failed to insert: %w", ErrDuplicate),
			expected: true,
		},
		{
			name:     "not-found error is not a duplicate error",
			err:      ErrQueueItemNotFound,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsDuplicateError(tt.err))
		})
	}
}

func TestStoreError_ErrorWithoutWrappedError(t *testing.T) {
	storeErr := &StoreError{
		Entity:    "newsletter",
		Operation: "create",
		Message:   "validation failed",
	}

	assert.Equal(t, "create operation on newsletter failed: validation failed", storeErr.Error())
}

func TestStoreError_ErrorWithWrappedError(t *testing.T) {
	originalErr := errors.New("connection refused")
	storeErr := NewStoreError("queue item", "claim", "database error", originalErr)

	assert.Equal(t,
		"claim operation on queue item failed: database error: connection refused",
		storeErr.Error())
}

func TestStoreError_Unwrap(t *testing.T) {
	originalErr := errors.New("connection timeout")
	storeErr := NewStoreError("company", "get", "timeout occurred", originalErr)

	assert.Equal(t, originalErr, storeErr.Unwrap())
}

// The postgres stores wrap mapped sentinels in a StoreError, so callers
// must still be able to match the sentinel through the wrapper.
func TestStoreError_ErrorsIs(t *testing.T) {
	storeErr := NewStoreError("queue item", "update",
		"status transition failed", ErrQueueItemNotFound)

	assert.True(t, errors.Is(storeErr, ErrQueueItemNotFound))
	assert.True(t, IsNotFoundError(storeErr))
	assert.False(t, IsDuplicateError(storeErr))
}

func TestStoreError_ErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("pass failed: %w",
		NewStoreError("newsletter", "get", "failed to query row", ErrNewsletterNotFound))

	var storeErr *StoreError
	assert.True(t, errors.As(wrapped, &storeErr))
	assert.Equal(t, "newsletter", storeErr.Entity)
	assert.Equal(t, "get", storeErr.Operation)
}
