package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

func TestTxRefEmbedsAttempt(t *testing.T) {
	ref := TxRef(42, 3)
	assert.Equal(t, "order_42_a3", ref)

	orderID, attempt, err := ParseTxRef(ref)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), orderID)
	assert.Equal(t, 3, attempt)

	for _, bad := range []string{"", "42_a1", "order_42", "order_x_a1", "order_42_a0", "order_0_a1", "order_42_retry_1700000000"} {
		_, _, err := ParseTxRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		want     bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusPending, enums.OrderStatusScheduled, true},
		{enums.OrderStatusScheduled, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusConfirmed, enums.OrderStatusPreparing, true},
		{enums.OrderStatusPreparing, enums.OrderStatusReady, true},
		{enums.OrderStatusReady, enums.OrderStatusDelivering, true},
		{enums.OrderStatusDelivering, enums.OrderStatusDelivering, true},
		{enums.OrderStatusDelivering, enums.OrderStatusDelivered, true},
		{enums.OrderStatusDelivered, enums.OrderStatusCompleted, true},
		{enums.OrderStatusPending, enums.OrderStatusReady, false},
		{enums.OrderStatusPreparing, enums.OrderStatusConfirmed, false},
		{enums.OrderStatusReady, enums.OrderStatusCancelled, true},
		{enums.OrderStatusScheduled, enums.OrderStatusFailed, true},
		{enums.OrderStatusCompleted, enums.OrderStatusCancelled, false},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
		{enums.OrderStatusPending, enums.OrderStatus("lost"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
