package flow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDepositText(t *testing.T) {
	t.Run("labeled amount with reference", func(t *testing.T) {
		text := "KBZ transfer successful.\nAmount: 150,000 MMK\nRef No: TXN12345678\nDate 2026-08-28"
		amount, reference, err := ParseDepositText(text)
		require.NoError(t, err)
		assert.True(t, amount.Equal(decimal.NewFromInt(150000)), "amount=%s", amount)
		assert.Equal(t, "TXN12345678", reference)
	})

	t.Run("bare figure fallback", func(t *testing.T) {
		amount, reference, err := ParseDepositText("sent 25000 to shop account")
		require.NoError(t, err)
		assert.True(t, amount.Equal(decimal.NewFromInt(25000)))
		assert.Empty(t, reference)
	})

	t.Run("decimal amount", func(t *testing.T) {
		amount, _, err := ParseDepositText("Amount: 1,250.50")
		require.NoError(t, err)
		assert.True(t, amount.Equal(decimal.RequireFromString("1250.50")))
	})

	t.Run("transaction id variant", func(t *testing.T) {
		_, reference, err := ParseDepositText("Total 99,000 Transaction ID: AB-2026-0099")
		require.NoError(t, err)
		assert.Equal(t, "AB-2026-0099", reference)
	})

	t.Run("no figures is unreadable", func(t *testing.T) {
		_, _, err := ParseDepositText("I deposited the money")
		assert.ErrorIs(t, err, ErrDepositUnreadable)
	})

	t.Run("empty is unreadable", func(t *testing.T) {
		_, _, err := ParseDepositText("   ")
		assert.ErrorIs(t, err, ErrDepositUnreadable)
	})
}
