package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestUserMessage(t *testing.T) {
	t.Run("credential failures share one message", func(t *testing.T) {
		wrapped := fmt.Errorf("admin lookup: %w", apperrors.ErrInvalidCredentials)
		require.Equal(t, apperrors.MsgInvalidCredentials, apperrors.UserMessage(wrapped))
		require.Equal(t, apperrors.MsgInvalidCredentials, apperrors.UserMessage(apperrors.ErrInvalidCredentials))
	})

	t.Run("integrity failures are generic", func(t *testing.T) {
		require.Equal(t, apperrors.MsgGeneric, apperrors.UserMessage(apperrors.ErrMemberRecordMissing))
		require.Equal(t, apperrors.MsgGeneric, apperrors.UserMessage(apperrors.ErrDataIntegrity))
		require.Equal(t, apperrors.MsgGeneric, apperrors.UserMessage(apperrors.ErrSessionPersistence))
	})

	t.Run("nil", func(t *testing.T) {
		require.Empty(t, apperrors.UserMessage(nil))
	})
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(apperrors.ErrInvalidCredentials))
	require.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(apperrors.ErrSessionExpired))
	require.Equal(t, http.StatusForbidden, apperrors.HTTPStatus(apperrors.ErrUnauthorizedRole))
	require.Equal(t, http.StatusTooManyRequests, apperrors.HTTPStatus(apperrors.ErrRateLimited))
	require.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(apperrors.ErrMemberRecordMissing))
}

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "noop"))

	err := apperrors.Wrapf(apperrors.ErrNotFound, "[GetBySigla] %s", "GER1")
	require.EqualError(t, err, "[GetBySigla] GER1: not found")
	require.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	require.Equal(t, "not_found", apperrors.Code(err))
}

func TestPublicCode(t *testing.T) {
	require.Equal(t, "internal_error", apperrors.PublicCode(apperrors.ErrMemberRecordMissing))
	require.Equal(t, "internal_error", apperrors.PublicCode(fmt.Errorf("dup: %w", apperrors.ErrDataIntegrity)))
	require.Equal(t, "internal_error", apperrors.PublicCode(apperrors.ErrSessionPersistence))
	require.Equal(t, "member_record_missing", apperrors.Code(apperrors.ErrMemberRecordMissing))

	require.Equal(t, "invalid_credentials", apperrors.PublicCode(apperrors.ErrInvalidCredentials))
	require.Equal(t, "unauthorized_role", apperrors.PublicCode(apperrors.ErrUnauthorizedRole))
}
