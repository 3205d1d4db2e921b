package gateway_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
)

func TestChargeIdempotencyKey_MatchesPattern(t *testing.T) {
	key := gateway.ChargeIdempotencyKey("prod", "tx-123", 1700000000)
	assert.Regexp(t, gateway.IdempotencyKeyPattern, key)
	assert.Equal(t, "instance=prod,bookingId=tx-123,session=1700000000", key)
}

func TestRefundIdempotencyKey_MatchesPattern(t *testing.T) {
	key := gateway.TicketRefundIdempotencyKey("prod", "ticket-9")
	assert.Regexp(t, gateway.IdempotencyKeyPattern, key)
	assert.True(t, strings.HasPrefix(key, "Refund:instance=prod,ticketId="))
}

func TestStatementDescriptor_TruncatesAndStripsIllegalChars(t *testing.T) {
	d := gateway.StatementDescriptor(`<Big"Bus'Co>`, "", "tx-0000000000000000001234")
	assert.LessOrEqual(t, len(d), 22)
	assert.NotContains(t, d, "<")
	assert.NotContains(t, d, ">")
	assert.NotContains(t, d, `"`)
	assert.NotContains(t, d, "'")
}

func TestStatementDescriptor_FallsBackToName(t *testing.T) {
	d := gateway.StatementDescriptor("", "Acme Buses", "tx-1")
	assert.True(t, strings.HasPrefix(d, "Acme Buses"))
	assert.Contains(t, d, "Ref#tx-1")
}
