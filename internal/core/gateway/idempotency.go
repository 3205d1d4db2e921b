package gateway

import (
	"fmt"
	"regexp"
	"strings"
)

// IdempotencyKeyPattern is the format every charge/refund idempotency key
// must match.
var IdempotencyKeyPattern = regexp.MustCompile(`^(Refund:)?instance=[^,]*,.*$`)

// ChargeIdempotencyKey builds the key for a charge call: "instance=<env>,
// bookingId=<txId>,session=<iat>".
func ChargeIdempotencyKey(env, transactionID string, sessionIat int64) string {
	return fmt.Sprintf("instance=%s,bookingId=%s,session=%d", env, transactionID, sessionIat)
}

// RefundIdempotencyKey builds the key for a refund call: "Refund:instance=
// <env>,{ticketId|routePassId}=<id>".
func RefundIdempotencyKey(env, entityKind, entityID string) string {
	return fmt.Sprintf("Refund:instance=%s,%s=%s", env, entityKind, entityID)
}

// ticketEntityKind and routePassEntityKind name the two entity kinds a
// refund idempotency key may reference.
const (
	ticketEntityKind    = "ticketId"
	routePassEntityKind = "routePassId"
)

func TicketRefundIdempotencyKey(env, ticketID string) string {
	return RefundIdempotencyKey(env, ticketEntityKind, ticketID)
}

func RoutePassRefundIdempotencyKey(env, routePassID string) string {
	return RefundIdempotencyKey(env, routePassEntityKind, routePassID)
}

// stripIllegalDescriptorChars drops the characters the gateway's
// statement-descriptor field forbids: <, >, ", '.
func stripIllegalDescriptorChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'':
			return -1
		default:
			return r
		}
	}, s)
}

// StatementDescriptor forms "{companyDescriptor[0..10]},Ref#{txId}",
// truncated to 22 characters.
// companyDescriptor is smsOpCode if non-empty, else the company name.
func StatementDescriptor(smsOpCode, name, transactionID string) string {
	companyDescriptor := smsOpCode
	if companyDescriptor == "" {
		companyDescriptor = name
	}
	companyDescriptor = stripIllegalDescriptorChars(companyDescriptor)
	if len(companyDescriptor) > 10 {
		companyDescriptor = companyDescriptor[:10]
	}
	descriptor := fmt.Sprintf("%s,Ref#%s", companyDescriptor, stripIllegalDescriptorChars(transactionID))
	if len(descriptor) > 22 {
		descriptor = descriptor[:22]
	}
	return descriptor
}
