package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StoreRequest is the body of POST /api/v1/transactions. Firefly's own rule
// engine and duplicate-hash check are bypassed; webhooks still fire.
type StoreRequest struct {
	ApplyRules           bool    `json:"apply_rules"`
	ErrorIfDuplicateHash bool    `json:"error_if_duplicate_hash"`
	FireWebhooks         bool    `json:"fire_webhooks"`
	Transactions         []Split `json:"transactions"`
}

// Split is one transaction split in the Firefly wire format. Statement rows
// always map to a single split.
type Split struct {
	Type                string   `json:"type"`
	Date                string   `json:"date"`
	Amount              string   `json:"amount"`
	Description         string   `json:"description"`
	SourceName          string   `json:"source_name"`
	DestinationName     string   `json:"destination_name"`
	CategoryName        string   `json:"category_name,omitempty"`
	CurrencyCode        string   `json:"currency_code,omitempty"`
	ForeignAmount       string   `json:"foreign_amount,omitempty"`
	ForeignCurrencyCode string   `json:"foreign_currency_code,omitempty"`
	ExternalID          string   `json:"external_id"`
	Notes               string   `json:"notes,omitempty"`
	Tags                []string `json:"tags,omitempty"`
}

// ToStore converts a Transaction into the Firefly store payload.
func (t Transaction) ToStore() StoreRequest {
	split := Split{
		Type:            string(t.Type),
		Date:            t.FormatDate(),
		Amount:          t.Amount.String(),
		Description:     t.Description,
		SourceName:      t.SourceAccount,
		DestinationName: t.DestinationAccount,
		CategoryName:    t.CategoryName,
		CurrencyCode:    t.CurrencyCode,
		ExternalID:      t.ExternalID,
		Notes:           t.Notes,
		Tags:            t.Tags,
	}

	// Foreign leg only when the statement carried one.
	if !t.ForeignAmount.IsZero() {
		split.ForeignAmount = t.ForeignAmount.String()
		split.ForeignCurrencyCode = t.ForeignCurrencyCode
	}

	return StoreRequest{
		ApplyRules:           false,
		ErrorIfDuplicateHash: false,
		FireWebhooks:         true,
		Transactions:         []Split{split},
	}
}

// FromSplit is the reverse mapping of ToStore for a single split.
func FromSplit(s Split) (Transaction, error) {
	typ, err := ParseTransactionType(s.Type)
	if err != nil {
		return Transaction{}, err
	}

	date, err := time.Parse(dateFormat, s.Date)
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing date %q: %w", s.Date, err)
	}

	amount, err := decimal.NewFromString(s.Amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing amount %q: %w", s.Amount, err)
	}

	var foreign decimal.Decimal
	if s.ForeignAmount != "" {
		foreign, err = decimal.NewFromString(s.ForeignAmount)
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing foreign amount %q: %w", s.ForeignAmount, err)
		}
	}

	return Transaction{
		ExternalID:          s.ExternalID,
		Description:         s.Description,
		Date:                date,
		SourceAccount:       s.SourceName,
		DestinationAccount:  s.DestinationName,
		Amount:              amount,
		Type:                typ,
		Tags:                s.Tags,
		CategoryName:        s.CategoryName,
		CurrencyCode:        s.CurrencyCode,
		ForeignAmount:       foreign,
		ForeignCurrencyCode: s.ForeignCurrencyCode,
		Notes:               s.Notes,
	}, nil
}
