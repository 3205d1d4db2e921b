package outbox_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwanAmeen/beeline-server/internal/platform/outbox"
)

func TestChargeDispatchedRoundTrips(t *testing.T) {
	dispatchedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	original := outbox.ChargeDispatched{
		TransactionID:  "txn-1",
		IdempotencyKey: "charge:txn-1",
		AmountCents:    1250,
		DispatchedAt:   dispatchedAt,
	}

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded outbox.ChargeDispatched
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, original, decoded)
}

func TestRefundDispatchedRoundTrips(t *testing.T) {
	dispatchedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	original := outbox.RefundDispatched{
		TransactionID:  "txn-2",
		ChargeID:       "ch_123",
		IdempotencyKey: "refund:txn-2",
		AmountCents:    750,
		DispatchedAt:   dispatchedAt,
	}

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded outbox.RefundDispatched
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, original, decoded)
}

func TestOutboxStatusConstants(t *testing.T) {
	assert.Equal(t, outbox.Status("PENDING"), outbox.StatusPending)
	assert.Equal(t, outbox.Status("SENT"), outbox.StatusSent)
	assert.Equal(t, outbox.Status("FAILED"), outbox.StatusFailed)
}
