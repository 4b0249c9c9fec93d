// Package resolver maps statement-side account identifiers onto canonical
// ledger account names, using a lookup fetched from the ledger at the start
// of a parsing session.
package resolver

import (
	"context"
	"fmt"

	"github.com/fireflybt/fireflybt/internal/firefly"
	"github.com/fireflybt/fireflybt/internal/model"
)

// Unresolved is the sentinel written to the asset side when the account key
// has no match in the ledger. Unresolved transactions are surfaced for
// manual correction, never dropped.
const Unresolved = "(unknown)"

// UnresolvedAccountError reports a statement account with no ledger match.
// Batch mode treats it as fatal; interactive modes surface it per record.
type UnresolvedAccountError struct {
	Key        string
	ExternalID string
}

func (e *UnresolvedAccountError) Error() string {
	return fmt.Sprintf("no matching account %q in the ledger for transaction with external id %s", e.Key, e.ExternalID)
}

// Session holds the ledger lookups for one statement-processing session.
// It must not outlive the session: the ledger's accounts can change between
// runs. Not safe for concurrent use.
type Session struct {
	ledger   firefly.Ledger
	accounts map[string]string // iban-or-name -> canonical account name

	categories   []string
	descriptions []string
	accountNames []string
}

// NewSession fetches the ledger's asset accounts and builds the resolution
// lookup, keyed by IBAN where the account has one and by name always.
func NewSession(ctx context.Context, ledger firefly.Ledger) (*Session, error) {
	assets, err := ledger.ListAssetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing asset accounts: %w", err)
	}

	accounts := make(map[string]string, len(assets)*2)
	for _, a := range assets {
		if a.IBAN != "" {
			accounts[a.IBAN] = a.Name
		}
		accounts[a.Name] = a.Name
	}

	return &Session{ledger: ledger, accounts: accounts}, nil
}

// Resolve rewrites the transaction's own-account side (source for
// withdrawals and transfers, destination for deposits) to the canonical
// ledger name. On a miss the side is set to the Unresolved sentinel and an
// *UnresolvedAccountError is returned; the caller decides whether that is
// fatal.
func (s *Session) Resolve(txn *model.Transaction) error {
	side := &txn.SourceAccount
	if txn.Type == model.TypeDeposit {
		side = &txn.DestinationAccount
	}

	key := *side
	if name, ok := s.accounts[key]; ok {
		*side = name
		return nil
	}

	*side = Unresolved
	return &UnresolvedAccountError{Key: key, ExternalID: txn.ExternalID}
}

// Categories returns the ledger's category names, fetched once per session.
func (s *Session) Categories(ctx context.Context) ([]string, error) {
	if s.categories == nil {
		names, err := s.ledger.ListCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing categories: %w", err)
		}
		if names == nil {
			names = []string{}
		}
		s.categories = names
	}
	return s.categories, nil
}

// Descriptions returns description autocomplete values, fetched once per session.
func (s *Session) Descriptions(ctx context.Context) ([]string, error) {
	if s.descriptions == nil {
		names, err := s.ledger.ListDescriptions(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing descriptions: %w", err)
		}
		if names == nil {
			names = []string{}
		}
		s.descriptions = names
	}
	return s.descriptions, nil
}

// AccountNames returns the names of all ledger accounts, fetched once per session.
func (s *Session) AccountNames(ctx context.Context) ([]string, error) {
	if s.accountNames == nil {
		accounts, err := s.ledger.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing accounts: %w", err)
		}
		names := make([]string, 0, len(accounts))
		for _, a := range accounts {
			names = append(names, a.Name)
		}
		s.accountNames = names
	}
	return s.accountNames, nil
}
