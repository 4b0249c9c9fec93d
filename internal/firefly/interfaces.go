package firefly

import (
	"context"

	"github.com/fireflybt/fireflybt/internal/model"
)

// Account is one ledger account as listed by Firefly III.
type Account struct {
	ID   string
	Name string
	IBAN string
}

// ExistingTransaction identifies a transaction already stored in the ledger.
type ExistingTransaction struct {
	ID string
}

// Ledger is the surface of the Firefly III API the pipeline consumes.
// Implemented by Client; fakes implement it in tests.
type Ledger interface {
	// ListAssetAccounts returns all asset accounts, flattened across pages.
	ListAssetAccounts(ctx context.Context) ([]Account, error)

	// ListAccounts returns all accounts of any type.
	ListAccounts(ctx context.Context) ([]Account, error)

	// ListCategories returns all category names.
	ListCategories(ctx context.Context) ([]string, error)

	// ListDescriptions returns transaction description autocomplete values.
	ListDescriptions(ctx context.Context) ([]string, error)

	// FindTransactionByExternalID returns the stored transaction with the
	// given external id, or nil when none exists. Absence is not an error.
	FindTransactionByExternalID(ctx context.Context, externalID string) (*ExistingTransaction, error)

	// CreateTransaction stores a new transaction. A rejection is returned
	// as a *SubmissionError carrying the remote response body.
	CreateTransaction(ctx context.Context, txn model.Transaction) error
}
