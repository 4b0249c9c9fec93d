package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fireflybt/fireflybt/internal/logger"
	"github.com/fireflybt/fireflybt/internal/model"
)

// Client talks to a Firefly III instance over its REST API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// DefaultTimeout bounds each API round-trip. No retries are performed;
// callers wrap with their own policy if they need one.
const DefaultTimeout = 30 * time.Second

// NewClient creates a Client for the given host and personal access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: DefaultTimeout},
	}
}

// Wire shapes for the handful of endpoints the tool consumes.

type pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

type listMeta struct {
	Pagination pagination `json:"pagination"`
}

type accountAttributes struct {
	Name string `json:"name"`
	IBAN string `json:"iban"`
	Type string `json:"type"`
}

type accountEntry struct {
	ID         string            `json:"id"`
	Attributes accountAttributes `json:"attributes"`
}

type accountsResponse struct {
	Data []accountEntry `json:"data"`
	Meta listMeta       `json:"meta"`
}

type categoryEntry struct {
	Attributes struct {
		Name string `json:"name"`
	} `json:"attributes"`
}

type categoriesResponse struct {
	Data []categoryEntry `json:"data"`
	Meta listMeta        `json:"meta"`
}

type searchResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type autocompleteEntry struct {
	Name string `json:"name"`
}

// ListAssetAccounts returns all asset accounts, flattened across pages.
func (c *Client) ListAssetAccounts(ctx context.Context) ([]Account, error) {
	return c.listAccounts(ctx, "asset")
}

// ListAccounts returns all accounts of any type.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	return c.listAccounts(ctx, "")
}

func (c *Client) listAccounts(ctx context.Context, accountType string) ([]Account, error) {
	log := logger.FromContext(ctx)

	var accounts []Account
	for page := 1; ; page++ {
		log.Debug().Int("page", page).Str("type", accountType).Msg("fetching accounts page")

		query := url.Values{"page": {strconv.Itoa(page)}}
		if accountType != "" {
			query.Set("type", accountType)
		}

		var resp accountsResponse
		if err := c.get(ctx, "/api/v1/accounts", query, &resp); err != nil {
			return nil, fmt.Errorf("listing accounts page %d: %w", page, err)
		}

		for _, entry := range resp.Data {
			accounts = append(accounts, Account{
				ID:   entry.ID,
				Name: entry.Attributes.Name,
				IBAN: entry.Attributes.IBAN,
			})
		}

		if page >= resp.Meta.Pagination.TotalPages {
			return accounts, nil
		}
	}
}

// ListCategories returns all category names, flattened across pages.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var names []string
	for page := 1; ; page++ {
		query := url.Values{"page": {strconv.Itoa(page)}}

		var resp categoriesResponse
		if err := c.get(ctx, "/api/v1/categories", query, &resp); err != nil {
			return nil, fmt.Errorf("listing categories page %d: %w", page, err)
		}

		for _, entry := range resp.Data {
			names = append(names, entry.Attributes.Name)
		}

		if page >= resp.Meta.Pagination.TotalPages {
			return names, nil
		}
	}
}

// descriptionsLimit caps the autocomplete fetch; Firefly treats it as "all"
// for any realistic ledger.
const descriptionsLimit = 99999

// ListDescriptions returns transaction description autocomplete values.
func (c *Client) ListDescriptions(ctx context.Context) ([]string, error) {
	query := url.Values{"limit": {strconv.Itoa(descriptionsLimit)}}

	var entries []autocompleteEntry
	if err := c.get(ctx, "/api/v1/autocomplete/transactions", query, &entries); err != nil {
		return nil, fmt.Errorf("listing descriptions: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	return names, nil
}

// FindTransactionByExternalID searches the ledger for a transaction with the
// given external id. Returns nil when none exists.
func (c *Client) FindTransactionByExternalID(ctx context.Context, externalID string) (*ExistingTransaction, error) {
	query := url.Values{"query": {"external_id_is:" + externalID}}

	var resp searchResponse
	if err := c.get(ctx, "/api/v1/search/transactions", query, &resp); err != nil {
		return nil, fmt.Errorf("searching for external id %s: %w", externalID, err)
	}

	if len(resp.Data) == 0 {
		return nil, nil
	}
	return &ExistingTransaction{ID: resp.Data[0].ID}, nil
}

// CreateTransaction stores a new transaction. Rejections come back as a
// *SubmissionError with the remote response body attached.
func (c *Client) CreateTransaction(ctx context.Context, txn model.Transaction) error {
	payload := txn.ToStore()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding transaction %s: %w", txn.ExternalID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("creating transaction %s: %w", txn.ExternalID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote, _ := io.ReadAll(resp.Body)
		return &SubmissionError{
			ExternalID: txn.ExternalID,
			StatusCode: resp.StatusCode,
			Body:       string(remote),
			Payload:    payload,
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, into any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		remote, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, string(remote))
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
}

var _ Ledger = (*Client)(nil)
