package conversation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextJSONKeepsCartVariants(t *testing.T) {
	margherita := LineProduct{ProductID: 3, ProductName: "Margherita", UnitPrice: decimal.NewFromInt(18000)}
	ctx := Context{
		Awaiting: StateQuantity,
		Cart: Cart{
			DraftCartLine{LineProduct: margherita}.Quantify(2),
			DraftCartLine{LineProduct: margherita},
		},
		LastActivity: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"awaiting":"quantity"`)

	var decoded Context
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Cart, 2)
	finalized, ok := decoded.Cart[0].(FinalizedCartLine)
	require.True(t, ok)
	assert.Equal(t, 2, finalized.Quantity)
	assert.True(t, decimal.NewFromInt(36000).Equal(finalized.LineTotal))
	_, ok = decoded.Cart[1].(DraftCartLine)
	assert.True(t, ok)
	assert.Equal(t, StateQuantity, decoded.Awaiting)
}

func TestStateTextRejectsUnknownNames(t *testing.T) {
	var s State
	require.NoError(t, s.UnmarshalText([]byte("")))
	assert.Equal(t, StateIdle, s)
	require.NoError(t, s.UnmarshalText([]byte("payment_retry")))
	assert.Equal(t, StatePaymentRetry, s)
	assert.Error(t, s.UnmarshalText([]byte("awaiting_something")))
}

func TestContextExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	active := Context{Awaiting: StateQuantity, LastActivity: now.Add(-181 * time.Second)}
	assert.True(t, active.Expired(now, 180*time.Second))

	active.LastActivity = now.Add(-180 * time.Second)
	assert.False(t, active.Expired(now, 180*time.Second))

	idle := Context{LastActivity: now.Add(-time.Hour)}
	assert.False(t, idle.Expired(now, 180*time.Second))
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"0712345678":       "255712345678",
		"+255 712 345 678": "255712345678",
		"712345678":        "255712345678",
		"255700000001":     "255700000001",
		"(0754) 123-456":   "255754123456",
	}
	for in, want := range cases {
		got, ok := NormalizePhone(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "12", "abc", "2557123456789012345"} {
		_, ok := NormalizePhone(bad)
		assert.False(t, ok, bad)
	}
}
