package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

var centsPerDollar = decimal.NewFromInt(100)

// GenerateRefundInfo fetches the underlying Charge, verifies the gateway's
// remaining balance covers the requested refund, and computes the
// processing-fee delta between the balance before and after. isMicro is
// taken from the Payment row's Options.IsMicro rather than inferred from a
// line item.
func GenerateRefundInfo(ctx context.Context, g Gateway, payment domain.Payment, amount decimal.Decimal, idempotencyKey string) (RefundInfo, error) {
	charge, err := g.RetrieveCharge(ctx, payment.PaymentResource)
	if err != nil {
		return RefundInfo{}, fmt.Errorf("retrieving charge for refund: %w", err)
	}

	amountCents := amount.Mul(centsPerDollar).Round(0).IntPart()
	balanceCents := charge.BalanceCents()
	if decimal.NewFromInt(balanceCents).LessThan(decimal.NewFromInt(amountCents).Sub(decimal.NewFromFloat(0.1))) {
		return RefundInfo{}, apperrors.NewTransactionError(fmt.Sprintf("refund amount %s exceeds remaining charge balance", amount.String()))
	}

	isMicro := payment.Options.IsMicro
	isLocalAndNonAmex := g.IsLocalAndNonAmex(charge.Source)

	feeBefore := g.FeeCents(balanceCents, isMicro, isLocalAndNonAmex)
	feeAfter := g.FeeCents(balanceCents-amountCents, isMicro, isLocalAndNonAmex)
	processingFee := decimal.NewFromInt(feeBefore - feeAfter).Div(centsPerDollar)

	return RefundInfo{
		ProcessingFee:   processingFee,
		Charge:          charge,
		IsMicro:         isMicro,
		BalanceAmtCents: balanceCents,
		Amount:          amount,
		IdempotencyKey:  idempotencyKey,
	}, nil
}

// AppendRefundEffect appends the full refund-side ledger effect onto b:
// a debit reversing the original ticketSale or routePass credit for the
// refunded entity (exactly one of ticketID/routePassID is non-empty), a
// payment credit returning funds to the customer, a transfer/account
// reversal of the original company settlement, and a processing-fee
// adjustment sized by info.ProcessingFee.
func AppendRefundEffect(b *ledger.Builder, ticketID, routePassID, companyID string, info RefundInfo) {
	switch {
	case ticketID != "":
		b.AppendItem(domain.NewDebit(domain.ItemTicketRefund, info.Amount, ticketID, ""))
	case routePassID != "":
		b.AppendItem(domain.NewDebit(domain.ItemRoutePass, info.Amount, routePassID, "route pass refund"))
	}

	payment := domain.NewCredit(domain.ItemPayment, info.Amount, "", "")
	payment.CompanyID = companyID
	b.AppendItem(payment)

	transfer := domain.NewDebit(domain.ItemTransfer, info.Amount, "", "")
	transfer.CompanyID = companyID
	b.AppendItem(transfer)

	b.AppendItem(domain.NewCredit(domain.ItemAccount, info.Amount, "", "COGS mirror reversal"))

	appendFeeAdjustment(b, companyID, info.ProcessingFee)
}

// appendFeeAdjustment books the processing-fee delta between a pair of
// account/transfer lines sized to fee.Abs, oriented by fee's sign so the
// pair balances on its own regardless of whether the fee rose or fell.
func appendFeeAdjustment(b *ledger.Builder, companyID string, fee decimal.Decimal) {
	if fee.IsZero() {
		return
	}
	magnitude := fee.Abs()
	if fee.IsPositive() {
		b.AppendItem(domain.NewDebit(domain.ItemAccount, magnitude, "", "refund processing fee"))
		transferCredit := domain.NewCredit(domain.ItemTransfer, magnitude, "", "refund processing fee")
		transferCredit.CompanyID = companyID
		b.AppendItem(transferCredit)
		return
	}
	b.AppendItem(domain.NewCredit(domain.ItemAccount, magnitude, "", "refund processing fee"))
	transferDebit := domain.NewDebit(domain.ItemTransfer, magnitude, "", "refund processing fee")
	transferDebit.CompanyID = companyID
	b.AppendItem(transferDebit)
}
