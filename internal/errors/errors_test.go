package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/indexer-snapshots/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Categorize(nil))
	})

	t.Run("finds wrapped categorized error", func(t *testing.T) {
		base := NewNotFoundError("snapshot", "0xabc-10")
		wrapped := fmt.Errorf("lookup failed: %w", base)

		got := Categorize(wrapped)
		require.NotNil(t, got)
		assert.Equal(t, CategoryNotFound, got.Category)
		assert.Equal(t, http.StatusNotFound, GetHTTPStatusCode(wrapped))
		assert.True(t, IsUserError(wrapped))
	})

	t.Run("service error maps to system", func(t *testing.T) {
		got := Categorize(&types.ServiceError{Code: "BROKEN", Message: "broken"})
		require.NotNil(t, got)
		assert.Equal(t, "BROKEN", got.Code)
		assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := Categorize(fmt.Errorf("boom"))
		require.NotNil(t, got)
		assert.Equal(t, "INTERNAL_ERROR", got.Code)
		assert.False(t, IsUserError(got))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewDatabaseError("save snapshot", fmt.Errorf("conn reset"))))
	assert.True(t, IsRetryable(NewCacheError("get", fmt.Errorf("timeout"))))
	assert.False(t, IsRetryable(NewInvalidParameterError("amount", "not a decimal")))
	assert.False(t, IsRetryable(nil))
}

func TestCategorizedError_Error(t *testing.T) {
	err := NewDatabaseError("load snapshot", fmt.Errorf("conn refused"))
	assert.Contains(t, err.Error(), "DATABASE_ERROR")
	assert.Contains(t, err.Error(), "conn refused")
	assert.ErrorContains(t, err.Unwrap(), "conn refused")

	svc := NewInvalidIndexerError("idx1").ToServiceError()
	assert.Equal(t, "INVALID_INDEXER", svc.Code)
	assert.Equal(t, "idx1", svc.Details["indexer"])
}
