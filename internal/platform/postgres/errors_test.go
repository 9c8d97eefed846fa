package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/draftwire/newsletter-api/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil passes through", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, MapError(nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		t.Parallel()
		mapped := MapError(sql.ErrNoRows)
		assert.True(t, store.IsNotFoundError(mapped))
	})

	t.Run("wrapped no rows maps to not found", func(t *testing.T) {
		t.Parallel()
		mapped := MapError(fmt.Errorf("scan failed: %w", sql.ErrNoRows))
		assert.True(t, store.IsNotFoundError(mapped))
	})

	t.Run("unique violation maps to duplicate", func(t *testing.T) {
		t.Parallel()
		pgErr := &pgconn.PgError{
			Code:           uniqueViolationCode,
			ConstraintName: "queue_items_newsletter_id_section_number_key",
		}
		mapped := MapError(pgErr)
		assert.True(t, store.IsDuplicateError(mapped))
	})

	t.Run("foreign key violation maps to invalid entity", func(t *testing.T) {
		t.Parallel()
		pgErr := &pgconn.PgError{
			Code:           foreignKeyViolationCode,
			ConstraintName: "queue_items_newsletter_id_fkey",
		}
		mapped := MapError(pgErr)
		assert.True(t, errors.Is(mapped, store.ErrInvalidEntity))
		assert.Contains(t, mapped.Error(), "queue_items_newsletter_id_fkey")
	})

	t.Run("not null violation maps to invalid entity", func(t *testing.T) {
		t.Parallel()
		pgErr := &pgconn.PgError{
			Code:       notNullViolationCode,
			ColumnName: "section_type",
		}
		mapped := MapError(pgErr)
		assert.True(t, errors.Is(mapped, store.ErrInvalidEntity))
		assert.Contains(t, mapped.Error(), "section_type")
	})

	t.Run("unrecognized error passes through unchanged", func(t *testing.T) {
		t.Parallel()
		original := errors.New("connection reset by peer")
		assert.Equal(t, original, MapError(original))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

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
			name:     "unique violation",
			err:      &pgconn.PgError{Code: uniqueViolationCode},
			expected: true,
		},
		{
			name:     "wrapped unique violation",
			err:      fmt.Errorf("insert failed: %w", &pgconn.PgError{Code: uniqueViolationCode}),
			expected: true,
		},
		{
			name:     "other postgres error",
			err:      &pgconn.PgError{Code: foreignKeyViolationCode},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsUniqueViolation(tt.err))
		})
	}
}
