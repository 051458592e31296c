package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := New("MEMBER_LIMIT", "Company Member adding limit reached.", http.StatusForbidden)
	require.Equal(t, "Company Member adding limit reached.", err.Error())

	wrapped := err.WithInternal(errors.New("row count 5 >= limit 5"))
	require.Contains(t, wrapped.Error(), "row count")
	require.Equal(t, err.Code, wrapped.Code)
}

func TestFromErrorUnwrapsAppError(t *testing.T) {
	base := NewForbidden("Company owner cannot be removed.")
	chained := fmt.Errorf("remove member: %w", base)

	got := FromError(chained)
	require.Equal(t, base.Code, got.Code)
	require.Equal(t, http.StatusForbidden, got.StatusCode)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, got.Code)
	require.Equal(t, http.StatusInternalServerError, got.StatusCode)
	require.ErrorContains(t, got, "boom")
}

func TestNewUnprocessable(t *testing.T) {
	err := NewUnprocessable("SIGNUP_REQUIRED", "Sign Up Required.")
	require.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	require.Equal(t, "Sign Up Required.", err.Message)
}
