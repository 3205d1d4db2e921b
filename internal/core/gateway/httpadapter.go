// HTTPS adapter implementation. No card-payment-gateway REST client
// (resty, stripe-go, plaid) is part of this module's dependency set, so
// this file is built on net/http directly — the one ambient concern in
// this repository without an ecosystem library to carry it (recorded in
// DESIGN.md).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

var decimalHundred = decimal.NewFromInt(100)

// HTTPConfig configures the HTTPS gateway adapter. StripeIsLive is carried
// as injected configuration rather than a package-level global.
type HTTPConfig struct {
	BaseURL            string
	APIKey             string
	ClientMerchantID   string
	SandboxMerchantID  string
	StripeIsLive       bool
	MinChargeCents     int64
	MicroThresholdCents int64
	Client             *http.Client
}

// HTTPAdapter is the production Gateway implementation.
type HTTPAdapter struct {
	cfg HTTPConfig
}

func NewHTTPAdapter(cfg HTTPConfig) *HTTPAdapter {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPAdapter{cfg: cfg}
}

// MerchantID selects clientId or sandboxId according to cfg.StripeIsLive.
func (a *HTTPAdapter) MerchantID() string {
	if a.cfg.StripeIsLive {
		return a.cfg.ClientMerchantID
	}
	return a.cfg.SandboxMerchantID
}

func (a *HTTPAdapter) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	body := map[string]any{
		"amount":                req.Value.Mul(decimalHundred).IntPart(),
		"description":           req.Description,
		"statement_descriptor":  req.StatementDescriptor,
		"destination":           req.Destination,
		"source":                req.Source,
		"customer":              req.Customer,
		"customer_source_id":    req.CustomerSourceID,
	}
	var result ChargeResult
	if err := a.do(ctx, http.MethodPost, "/charges", req.IdempotencyKey, body, &result); err != nil {
		return ChargeResult{}, apperrors.NewChargeError("gateway charge failed", err)
	}
	return result, nil
}

func (a *HTTPAdapter) Refund(ctx context.Context, chargeID string, amountCents int64, idempotencyKey string) error {
	body := map[string]any{"charge": chargeID, "amount": amountCents}
	if err := a.do(ctx, http.MethodPost, "/refunds", idempotencyKey, body, nil); err != nil {
		return apperrors.NewChargeError("gateway refund failed", err)
	}
	return nil
}

func (a *HTTPAdapter) RetrieveCharge(ctx context.Context, resourceID string) (domain.Charge, error) {
	var raw struct {
		ID            string `json:"id"`
		Amount        int64  `json:"amount"`
		AmountRefunded int64 `json:"amount_refunded"`
		Source        string `json:"source"`
	}
	if err := a.do(ctx, http.MethodGet, "/charges/"+resourceID, "", nil, &raw); err != nil {
		return domain.Charge{}, apperrors.NewChargeError("gateway retrieve-charge failed", err)
	}
	return domain.Charge{ID: raw.ID, AmountCents: raw.Amount, RefundedCents: raw.AmountRefunded, Source: raw.Source}, nil
}

func (a *HTTPAdapter) FeeCents(amountCents int64, isMicro, isLocalAndNonAmex bool) int64 {
	switch {
	case isMicro:
		return amountCents*5/100 + 5 // 5% + 5c, typical micro-transaction schedule
	case isLocalAndNonAmex:
		return amountCents*29/1000 + 30 // 2.9% + 30c
	default:
		return amountCents*35/1000 + 30 // 3.5% + 30c for international/Amex
	}
}

func (a *HTTPAdapter) MinChargeCents() int64 { return a.cfg.MinChargeCents }

func (a *HTTPAdapter) IsMicro(amountCents int64) bool { return amountCents < a.cfg.MicroThresholdCents }

func (a *HTTPAdapter) IsLocalAndNonAmex(source string) bool {
	return source != "" && source != "amex"
}

func (a *HTTPAdapter) do(ctx context.Context, method, path, idempotencyKey string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := a.cfg.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
