package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-membership/internal/models"
)

func payRequest() PayRequest {
	return PayRequest{
		Prime:    "prime_test",
		Amount:   2970,
		Currency: "TWD",
		Details:  "supporter membership x2",
		Cardholder: models.Cardholder{
			Name:  "Jane Chen",
			Email: "jane@example.com",
			Phone: "+886912345678",
		},
		OrderRef: "REF-GW-1",
	}
}

func TestTapPayPay_Success(t *testing.T) {
	var got tapPayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "partner-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(tapPayResponse{
			Status:            0,
			Msg:               "Success",
			RecTradeID:        "rec_123",
			BankTransactionID: "bank_456",
		})
	}))
	defer server.Close()

	gw := NewTapPayGateway(server.URL, "partner-key", "merchant-1", nil)

	result, err := gw.Pay(context.Background(), payRequest())
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "rec_123", result.RecTradeID)
	assert.Equal(t, "bank_456", result.BankTransactionID)
	assert.NotEmpty(t, result.Raw)

	// The provider request carries the merchant credentials and reference.
	assert.Equal(t, "prime_test", got.Prime)
	assert.Equal(t, "partner-key", got.PartnerKey)
	assert.Equal(t, "merchant-1", got.MerchantID)
	assert.Equal(t, "REF-GW-1", got.OrderNumber)
	assert.Equal(t, "+886912345678", got.Cardholder.PhoneNumber)
}

func TestTapPayPay_Decline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tapPayResponse{Status: 10003, Msg: "card_declined"})
	}))
	defer server.Close()

	gw := NewTapPayGateway(server.URL, "partner-key", "merchant-1", nil)

	result, err := gw.Pay(context.Background(), payRequest())
	require.NoError(t, err, "a decline is a result, not an error")
	assert.False(t, result.OK)
	assert.Equal(t, 10003, result.Status)
	assert.Equal(t, "card_declined", result.Msg)
}

func TestTapPayPay_Installment(t *testing.T) {
	var got tapPayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(tapPayResponse{Status: 0})
	}))
	defer server.Close()

	gw := NewTapPayGateway(server.URL, "partner-key", "merchant-1", nil)

	req := payRequest()
	req.Installment = &models.Installment{Bank: "ctbc", Periods: 6}
	_, err := gw.Pay(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, got.Installment)
	assert.Equal(t, 6, got.Installment.Periods)
}

func TestTapPayPay_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gw := NewTapPayGateway(server.URL, "partner-key", "merchant-1", nil)

	_, err := gw.Pay(context.Background(), payRequest())
	assert.Error(t, err)
}

func TestTapPayPay_Unreachable(t *testing.T) {
	gw := NewTapPayGateway("http://127.0.0.1:1", "partner-key", "merchant-1", nil)

	_, err := gw.Pay(context.Background(), payRequest())
	assert.Error(t, err)
}
