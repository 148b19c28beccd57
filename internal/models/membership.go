package models

import (
	"time"

	"github.com/uptrace/bun"
)

type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipExpired   MembershipStatus = "expired"
	MembershipCancelled MembershipStatus = "cancelled"
)

type Membership struct {
	bun.BaseModel `bun:"table:memberships"`

	MembershipID string           `bun:"membership_id,pk" json:"membership_id"`
	MemberNo     string           `bun:"member_no,unique" json:"member_no"`
	OrderID      string           `bun:"order_id" json:"order_id"`
	Tier         string           `bun:"tier" json:"tier"`
	ValidUntil   time.Time        `bun:"valid_until" json:"valid_until"`
	Status       MembershipStatus `bun:"status" json:"status"`
	UserID       string           `bun:"user_id,nullzero" json:"user_id,omitempty"`
	HolderName   string           `bun:"holder_name" json:"holder_name"`
	HolderEmail  string           `bun:"holder_email" json:"holder_email"`
	IssuedAt     time.Time        `bun:"issued_at" json:"issued_at"`
	CardQR       []byte           `bun:"card_qr" json:"card_qr,omitempty"`
}

// NewMembership issues an active membership tied to a paid order. Validity
// is months calendar months from now; the card snapshot records the holder
// at issuance time.
func NewMembership(id, memberNo, orderID, tier string, months int, holderName, holderEmail string, now time.Time) Membership {
	return Membership{
		MembershipID: id,
		MemberNo:     memberNo,
		OrderID:      orderID,
		Tier:         tier,
		ValidUntil:   now.AddDate(0, months, 0),
		Status:       MembershipActive,
		HolderName:   holderName,
		HolderEmail:  holderEmail,
		IssuedAt:     now,
	}
}

// IsActive combines the stored status with the clock. Expiry is a derived
// fact until an explicit Expire transition is applied.
func (m *Membership) IsActive(now time.Time) bool {
	return m.Status == MembershipActive && now.Before(m.ValidUntil)
}

// Cancel is a one-way transition; ValidUntil is left untouched.
func (m *Membership) Cancel() {
	m.Status = MembershipCancelled
}

// Expire is a one-way transition; ValidUntil is left untouched.
func (m *Membership) Expire() {
	m.Status = MembershipExpired
}
