package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ms-membership/internal/models"
)

var issuedAt = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func testMembership() models.Membership {
	return models.NewMembership(
		"mem_test", "NC-2026-7KQ4", "ord_test", "supporter",
		3, "Jane Doe", "jane@example.com", issuedAt,
	)
}

func TestNewMembershipValidity(t *testing.T) {
	m := testMembership()

	assert.Equal(t, models.MembershipActive, m.Status)
	// months=3 at instant T means valid until T plus 3 calendar months.
	assert.Equal(t, issuedAt.AddDate(0, 3, 0), m.ValidUntil)
	assert.Equal(t, issuedAt, m.IssuedAt)
	assert.Equal(t, "Jane Doe", m.HolderName)
	assert.Equal(t, "jane@example.com", m.HolderEmail)
}

func TestIsActiveWindow(t *testing.T) {
	m := testMembership()

	assert.True(t, m.IsActive(issuedAt.AddDate(0, 0, 1)), "one day in")
	assert.True(t, m.IsActive(issuedAt.AddDate(0, 3, 0).Add(-time.Second)), "just before expiry")
	assert.False(t, m.IsActive(issuedAt.AddDate(0, 4, 0)), "a month past expiry")
}

func TestIsActiveRequiresActiveStatus(t *testing.T) {
	m := testMembership()
	within := issuedAt.AddDate(0, 0, 1)

	m.Cancel()
	assert.False(t, m.IsActive(within))
}

func TestCancelKeepsValidUntil(t *testing.T) {
	m := testMembership()
	before := m.ValidUntil

	m.Cancel()

	assert.Equal(t, models.MembershipCancelled, m.Status)
	assert.Equal(t, before, m.ValidUntil)
}

func TestExpireKeepsValidUntil(t *testing.T) {
	m := testMembership()
	before := m.ValidUntil

	m.Expire()

	assert.Equal(t, models.MembershipExpired, m.Status)
	assert.Equal(t, before, m.ValidUntil)
}
