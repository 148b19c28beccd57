package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ms-membership/internal/logger"
)

// TapPayGateway charges through the TapPay pay-by-prime endpoint. TapPay
// signals the business outcome in the JSON status field: 0 is success,
// everything else is a decline carried back in msg.
type TapPayGateway struct {
	URL        string
	PartnerKey string
	MerchantID string
	Client     *http.Client
	Logger     *logger.Logger
}

func NewTapPayGateway(url, partnerKey, merchantID string, log *logger.Logger) *TapPayGateway {
	return &TapPayGateway{
		URL:        url,
		PartnerKey: partnerKey,
		MerchantID: merchantID,
		Client:     &http.Client{Timeout: 30 * time.Second},
		Logger:     log,
	}
}

type tapPayRequest struct {
	Prime       string            `json:"prime"`
	PartnerKey  string            `json:"partner_key"`
	MerchantID  string            `json:"merchant_id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Details     string            `json:"details"`
	Cardholder  tapPayCardholder  `json:"cardholder"`
	OrderNumber string            `json:"order_number,omitempty"`
	Remember    bool              `json:"remember"`
	Installment *tapPayInstalment `json:"instalment,omitempty"`
}

type tapPayCardholder struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

type tapPayInstalment struct {
	Bank    string `json:"bank"`
	Periods int    `json:"number_of_instalments"`
}

type tapPayResponse struct {
	Status            int    `json:"status"`
	Msg               string `json:"msg"`
	RecTradeID        string `json:"rec_trade_id"`
	BankTransactionID string `json:"bank_transaction_id"`
}

func (g *TapPayGateway) Pay(ctx context.Context, req PayRequest) (*PayResult, error) {
	body := tapPayRequest{
		Prime:      req.Prime,
		PartnerKey: g.PartnerKey,
		MerchantID: g.MerchantID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Details:    req.Details,
		Cardholder: tapPayCardholder{
			PhoneNumber: req.Cardholder.Phone,
			Name:        req.Cardholder.Name,
			Email:       req.Cardholder.Email,
		},
		OrderNumber: req.OrderRef,
	}
	if req.Installment != nil {
		body.Installment = &tapPayInstalment{
			Bank:    req.Installment.Bank,
			Periods: req.Installment.Periods,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pay-by-prime request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create pay-by-prime request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.PartnerKey)

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pay-by-prime call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pay-by-prime response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pay-by-prime returned HTTP %d", resp.StatusCode)
	}

	var tpResp tapPayResponse
	if err := json.Unmarshal(raw, &tpResp); err != nil {
		return nil, fmt.Errorf("failed to decode pay-by-prime response: %w", err)
	}

	result := &PayResult{
		OK:                tpResp.Status == 0,
		Status:            tpResp.Status,
		Msg:               tpResp.Msg,
		RecTradeID:        tpResp.RecTradeID,
		BankTransactionID: tpResp.BankTransactionID,
		Raw:               json.RawMessage(raw),
	}

	if g.Logger != nil {
		if result.OK {
			g.Logger.LogGateway("tappay", req.OrderRef, fmt.Sprintf("charge ok, rec_trade_id=%s", tpResp.RecTradeID))
		} else {
			g.Logger.LogGateway("tappay", req.OrderRef, fmt.Sprintf("charge declined, status=%d msg=%s", tpResp.Status, tpResp.Msg))
		}
	}
	return result, nil
}

var _ Gateway = (*TapPayGateway)(nil)
