package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction as Firefly III understands it.
type TransactionType string

const (
	TypeWithdrawal TransactionType = "withdrawal"
	TypeDeposit    TransactionType = "deposit"
	TypeTransfer   TransactionType = "transfer"
)

// ParseTransactionType converts a wire value into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TypeWithdrawal, TypeDeposit, TypeTransfer:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// ProvenanceTag marks transactions created by this tool.
const ProvenanceTag = "fireflybt"

// Transaction is one parsed statement row, classified and ready for Firefly III.
// Amount is always a positive magnitude; direction is carried by Type.
// The JSON form is what the WebSocket bridge exchanges with form UIs.
type Transaction struct {
	ExternalID          string          `json:"external_id"`
	Description         string          `json:"description"`
	Date                time.Time       `json:"date"`
	SourceAccount       string          `json:"source_account"`
	DestinationAccount  string          `json:"destination_account"`
	Amount              decimal.Decimal `json:"amount"`
	Type                TransactionType `json:"type"`
	Tags                []string        `json:"tags"`
	CategoryName        string          `json:"category_name,omitempty"`
	CurrencyCode        string          `json:"currency_code,omitempty"`
	ForeignAmount       decimal.Decimal `json:"foreign_amount,omitempty"`
	ForeignCurrencyCode string          `json:"foreign_currency_code,omitempty"`
	Notes               string          `json:"notes,omitempty"`
}

// DefaultTags returns the tag list applied to freshly parsed transactions.
func DefaultTags() []string {
	return []string{ProvenanceTag}
}

// Validate checks the record invariants before submission.
func (t Transaction) Validate() error {
	if t.ExternalID == "" {
		return fmt.Errorf("transaction has no external id")
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction %s: amount %s is not positive", t.ExternalID, t.Amount)
	}
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return fmt.Errorf("transaction %s: %w", t.ExternalID, err)
	}
	return nil
}

// dateFormat is the calendar-date form Firefly accepts for splits.
const dateFormat = "2006-01-02"

// FormatDate renders the transaction's effective date for the wire.
func (t Transaction) FormatDate() string {
	return t.Date.Format(dateFormat)
}
