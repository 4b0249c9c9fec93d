package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransaction() Transaction {
	return Transaction{
		ExternalID:         "2025011501",
		Description:        "Mancare comandata",
		Date:               time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
		SourceAccount:      "BT Current",
		DestinationAccount: "Glovo",
		Amount:             decimal.RequireFromString("20.5"),
		Type:               TypeWithdrawal,
		Tags:               DefaultTags(),
		CategoryName:       "Food",
		CurrencyCode:       "RON",
		Notes:              "Cumparare POS;TID:82134567 GLOVO",
	}
}

func TestToStore_Flags(t *testing.T) {
	req := sampleTransaction().ToStore()

	assert.False(t, req.ApplyRules)
	assert.False(t, req.ErrorIfDuplicateHash)
	assert.True(t, req.FireWebhooks)
	require.Len(t, req.Transactions, 1)
}

func TestToStore_Split(t *testing.T) {
	split := sampleTransaction().ToStore().Transactions[0]

	assert.Equal(t, "withdrawal", split.Type)
	assert.Equal(t, "2025-01-14", split.Date)
	assert.Equal(t, "20.5", split.Amount)
	assert.Equal(t, "BT Current", split.SourceName)
	assert.Equal(t, "Glovo", split.DestinationName)
	assert.Equal(t, "2025011501", split.ExternalID)
	assert.Equal(t, []string{ProvenanceTag}, split.Tags)

	// No foreign leg unless the statement carried one.
	assert.Empty(t, split.ForeignAmount)
	assert.Empty(t, split.ForeignCurrencyCode)
}

func TestToStore_ForeignLeg(t *testing.T) {
	txn := sampleTransaction()
	txn.ForeignAmount = decimal.RequireFromString("4.1")
	txn.ForeignCurrencyCode = "EUR"

	split := txn.ToStore().Transactions[0]
	assert.Equal(t, "4.1", split.ForeignAmount)
	assert.Equal(t, "EUR", split.ForeignCurrencyCode)
}

func TestFromSplit_RoundTrip(t *testing.T) {
	txn := sampleTransaction()

	got, err := FromSplit(txn.ToStore().Transactions[0])
	require.NoError(t, err)
	assert.Equal(t, txn.ExternalID, got.ExternalID)
	assert.Equal(t, txn.Type, got.Type)
	assert.True(t, txn.Amount.Equal(got.Amount))
	assert.True(t, txn.Date.Equal(got.Date))
	assert.Equal(t, txn.SourceAccount, got.SourceAccount)
	assert.Equal(t, txn.DestinationAccount, got.DestinationAccount)
}

func TestFromSplit_Invalid(t *testing.T) {
	_, err := FromSplit(Split{Type: "withdraw", Date: "2025-01-14", Amount: "20"})
	assert.Error(t, err)

	_, err = FromSplit(Split{Type: "withdrawal", Date: "14/01/2025", Amount: "20"})
	assert.Error(t, err)

	_, err = FromSplit(Split{Type: "withdrawal", Date: "2025-01-14", Amount: "twenty"})
	assert.Error(t, err)
}

func TestStoreRequest_WireNames(t *testing.T) {
	data, err := json.Marshal(sampleTransaction().ToStore())
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, `"apply_rules":false`)
	assert.Contains(t, body, `"error_if_duplicate_hash":false`)
	assert.Contains(t, body, `"fire_webhooks":true`)
	assert.Contains(t, body, `"external_id":"2025011501"`)
	assert.Contains(t, body, `"source_name":"BT Current"`)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, sampleTransaction().Validate())

	missing := sampleTransaction()
	missing.ExternalID = ""
	assert.Error(t, missing.Validate())

	zero := sampleTransaction()
	zero.Amount = decimal.Zero
	assert.Error(t, zero.Validate())

	badType := sampleTransaction()
	badType.Type = "spend"
	assert.Error(t, badType.Validate())
}

func TestParseTransactionType(t *testing.T) {
	for _, s := range []string{"withdrawal", "deposit", "transfer"} {
		typ, err := ParseTransactionType(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(typ))
	}

	_, err := ParseTransactionType("Withdrawal")
	assert.Error(t, err)
}
