package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateTransition_HappyPath(t *testing.T) {
	steps := []Status{StatusPending, StatusVerified, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered}
	for i := 0; i < len(steps)-1; i++ {
		require.NoError(t, ValidateTransition(steps[i], steps[i+1], false))
	}
}

func TestValidateTransition_CancelFromAnyActiveState(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusVerified, StatusConfirmed, StatusPreparing, StatusOutForDelivery} {
		require.NoError(t, ValidateTransition(from, StatusCancelled, false))
	}
}

func TestValidateTransition_RejectsSkipsAndReversals(t *testing.T) {
	cases := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusVerified, StatusPending},
		{StatusDelivered, StatusPending},
		{StatusCancelled, StatusVerified},
		{StatusDelivered, StatusCancelled},
	}
	for _, tc := range cases {
		require.ErrorIs(t, ValidateTransition(tc.from, tc.to, false), ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
	}
}

func TestValidateTransition_PrivilegedOverride(t *testing.T) {
	require.NoError(t, ValidateTransition(StatusPending, StatusOutForDelivery, true))
	require.NoError(t, ValidateTransition(StatusPreparing, StatusPending, true))
	// Terminal states stay terminal even for admins.
	require.ErrorIs(t, ValidateTransition(StatusDelivered, StatusPending, true), ErrInvalidTransition)
	require.ErrorIs(t, ValidateTransition(StatusCancelled, StatusConfirmed, true), ErrInvalidTransition)
	// Re-asserting the same terminal state is a no-op.
	require.NoError(t, ValidateTransition(StatusDelivered, StatusDelivered, true))
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	require.ErrorIs(t, ValidateTransition(StatusPending, Status("shipped"), false), ErrInvalidTransition)
	require.ErrorIs(t, ValidateTransition(StatusPending, Status("shipped"), true), ErrInvalidTransition)
}

func TestStatus_Terminal(t *testing.T) {
	require.True(t, StatusDelivered.Terminal())
	require.True(t, StatusCancelled.Terminal())
	require.False(t, StatusPending.Terminal())
	require.False(t, Status("shipped").Terminal())
}
