package models

import (
	"time"
)

// Cardholder is the purchaser's contact info as handed to the gateway.
type Cardholder struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Installment carries optional installment parameters for gateways that
// support splitting the charge.
type Installment struct {
	Bank    string `json:"bank"`
	Periods int    `json:"periods"`
}

// PledgeRequest is the single invocation contract of the pledge workflow:
// payment fields plus workflow fields.
type PledgeRequest struct {
	Prime        string       `json:"prime"`
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	Cardholder   Cardholder   `json:"cardholder"`
	OrderRef     string       `json:"order_ref,omitempty"`
	PaymentType  string       `json:"payment_type,omitempty"`
	Installment  *Installment `json:"installment,omitempty"`
	Participants []string     `json:"participants"`
	Months       int          `json:"months"`
	Tier         string       `json:"tier"`
}

// PledgeResult is the two-variant outcome of the workflow. Errors never
// escape the workflow boundary; every path ends in one of these.
type PledgeResult struct {
	OK            bool     `json:"ok"`
	Msg           string   `json:"msg,omitempty"`
	OrderID       string   `json:"order_id,omitempty"`
	MemberNumbers []string `json:"member_numbers,omitempty"`
}

func PledgeSuccess(orderID string, memberNumbers []string) PledgeResult {
	return PledgeResult{OK: true, OrderID: orderID, MemberNumbers: memberNumbers}
}

func PledgeFailure(msg string) PledgeResult {
	return PledgeResult{OK: false, Msg: msg}
}

// PledgeEvent is published to Kafka after the workflow reaches a terminal
// outcome. Consumers (mail digests, analytics) must tolerate duplicates.
type PledgeEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	OrderRef      string    `json:"order_ref"`
	MemberNumbers []string  `json:"member_numbers,omitempty"`
	Msg           string    `json:"msg,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
