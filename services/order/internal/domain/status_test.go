package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" shipped ")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, status)

	_, err = ParseStatus("LOST")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestCanTransition_DeliveredIsTerminal(t *testing.T) {
	for _, to := range []Status{StatusPending, StatusProcessing, StatusShipped, StatusCancelled, StatusDelivered} {
		err := CanTransition(StatusDelivered, to)
		require.ErrorIs(t, err, ErrInvalidTransition)

		var tErr *TransitionError
		require.True(t, errors.As(err, &tErr))
		require.True(t, tErr.Terminal, "target %s", to)
	}
}

func TestCanTransition_Table(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusShipped, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusPending, false},
		{StatusShipped, StatusProcessing, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, true},
		{StatusCancelled, StatusPending, true},
		{StatusCancelled, StatusShipped, true},
		{StatusCancelled, StatusDelivered, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusPending, StatusPending, false},
	}

	for _, tc := range cases {
		err := CanTransition(tc.from, tc.to)
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
			continue
		}

		require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
	}
}

func TestPlan_Effects(t *testing.T) {
	tr, err := Plan(StatusProcessing, StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, EffectRelease, tr.Effect)
	require.Equal(t, PaymentStatusRefunded, tr.PaymentStatus)

	tr, err = Plan(StatusCancelled, StatusPending)
	require.NoError(t, err)
	require.Equal(t, EffectReserve, tr.Effect)
	require.Equal(t, PaymentStatusPending, tr.PaymentStatus)

	tr, err = Plan(StatusCancelled, StatusProcessing)
	require.NoError(t, err)
	require.Equal(t, EffectReserve, tr.Effect)
	require.Equal(t, PaymentStatusPaid, tr.PaymentStatus)

	tr, err = Plan(StatusShipped, StatusDelivered)
	require.NoError(t, err)
	require.Equal(t, EffectNone, tr.Effect)
	require.Equal(t, PaymentStatusPaid, tr.PaymentStatus)
}
