package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// ErrOrderAlreadyPaid is returned when a transition would overwrite a
// successful payment. PAID is terminal: an order is never confirmed twice
// and never demoted to failed.
var ErrOrderAlreadyPaid = errors.New("order already paid")

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID        string      `bun:"order_id,pk" json:"order_id"`
	OrderRef       string      `bun:"order_ref,unique" json:"order_ref"`
	Status         OrderStatus `bun:"status" json:"status"`
	Amount         int64       `bun:"amount" json:"amount"`
	Currency       string      `bun:"currency" json:"currency"`
	PurchaserName  string      `bun:"purchaser_name" json:"purchaser_name"`
	PurchaserEmail string      `bun:"purchaser_email" json:"purchaser_email"`
	PurchaserPhone string      `bun:"purchaser_phone" json:"purchaser_phone"`
	Participants   []string    `bun:"participants,type:jsonb" json:"participants"`
	Tier           string      `bun:"tier" json:"tier"`
	Months         int         `bun:"months" json:"months"`
	CreatedAt      time.Time   `bun:"created_at" json:"created_at"`
	PaidAt         time.Time   `bun:"paid_at,nullzero" json:"paid_at,omitempty"`
}

// NewOrder builds a pending order stamped with the given instant. The
// order is owned by the pledge workflow until it reaches a terminal status.
// Tier and months are recorded here so a replayed issuance reads the
// pledged terms from the durable order, never from a later request.
func NewOrder(id, ref string, amount int64, currency string, purchaser Cardholder, participants []string, tier string, months int, now time.Time) Order {
	return Order{
		OrderID:        id,
		OrderRef:       ref,
		Status:         OrderPending,
		Amount:         amount,
		Currency:       currency,
		PurchaserName:  purchaser.Name,
		PurchaserEmail: purchaser.Email,
		PurchaserPhone: purchaser.Phone,
		Participants:   participants,
		Tier:           tier,
		Months:         months,
		CreatedAt:      now,
	}
}

// ConfirmPayment moves the order to PAID. Calling it on an order that is
// already PAID is a contract violation, not a business outcome.
func (o *Order) ConfirmPayment(paidAt time.Time) error {
	if o.Status == OrderPaid {
		return ErrOrderAlreadyPaid
	}
	o.Status = OrderPaid
	o.PaidAt = paidAt
	return nil
}

// MarkAsFailed moves any non-PAID order to FAILED. A confirmed payment can
// never be overwritten by a failure.
func (o *Order) MarkAsFailed() error {
	if o.Status == OrderPaid {
		return ErrOrderAlreadyPaid
	}
	o.Status = OrderFailed
	return nil
}

func (o *Order) IsPaid() bool {
	return o.Status == OrderPaid
}
