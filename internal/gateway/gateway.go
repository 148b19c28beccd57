package gateway

import (
	"context"
	"encoding/json"

	"ms-membership/internal/models"
)

// PayRequest is the structured charge request handed to a payment
// provider. Prime is the provider-specific opaque one-time token obtained
// by the checkout frontend.
type PayRequest struct {
	Prime       string              `json:"prime"`
	Amount      int64               `json:"amount"`
	Currency    string              `json:"currency"`
	Details     string              `json:"details"`
	Cardholder  models.Cardholder   `json:"cardholder"`
	OrderRef    string              `json:"order_ref,omitempty"`
	PaymentType string              `json:"payment_type,omitempty"`
	Installment *models.Installment `json:"installment,omitempty"`
}

// PayResult is the provider response normalized to a single shape. The
// workflow treats OK=false identically regardless of why the charge was
// declined; Raw is kept verbatim for audit.
type PayResult struct {
	OK                bool            `json:"ok"`
	Status            int             `json:"status"`
	Msg               string          `json:"msg,omitempty"`
	RecTradeID        string          `json:"rec_trade_id,omitempty"`
	BankTransactionID string          `json:"bank_transaction_id,omitempty"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

// Gateway is the port to the external payment processor. A non-nil error
// means the charge attempt itself could not be completed (network,
// provider outage); a decline comes back as a result with OK=false. The
// workflow retries neither - retry policy belongs to the adapter.
type Gateway interface {
	Pay(ctx context.Context, req PayRequest) (*PayResult, error)
}
