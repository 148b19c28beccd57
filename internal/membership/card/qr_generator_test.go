package card_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-membership/internal/membership/card"
	"ms-membership/internal/models"
)

func sampleMembership() models.Membership {
	return models.NewMembership(
		"mem_test", "NC-2026-AB2D", "ord_test", "supporter", 3,
		"Jane Chen", "jane@example.com",
		time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
	)
}

func TestGenerateCardQR(t *testing.T) {
	gen := card.NewQRGenerator("test-secret-key")

	png, err := gen.GenerateCardQR(sampleMembership())
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestGenerateCardQR_RandomIV(t *testing.T) {
	gen := card.NewQRGenerator("test-secret-key")
	m := sampleMembership()

	png1, err := gen.GenerateCardQR(m)
	require.NoError(t, err)
	png2, err := gen.GenerateCardQR(m)
	require.NoError(t, err)

	// Each encryption uses a fresh IV, so the same card never renders the
	// same code twice.
	assert.NotEqual(t, png1, png2)
}

func TestGenerateCardQR_DifferentSecrets(t *testing.T) {
	m := sampleMembership()

	png1, err := card.NewQRGenerator("secret-one").GenerateCardQR(m)
	require.NoError(t, err)
	png2, err := card.NewQRGenerator("secret-two").GenerateCardQR(m)
	require.NoError(t, err)

	assert.NotEqual(t, png1, png2)
}
