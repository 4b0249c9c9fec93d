package firefly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireflybt/fireflybt/internal/model"
)

func TestListAssetAccounts_Paginated(t *testing.T) {
	var pagesServed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/accounts", r.URL.Path)
		require.Equal(t, "asset", r.URL.Query().Get("type"))
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)

		name := "BT Current"
		if page == "2" {
			name = "Savings"
		}
		fmt.Fprintf(w, `{
			"data": [{"id": "%s", "attributes": {"name": %q, "iban": "RO49BTRL0000000000000000", "type": "asset"}}],
			"meta": {"pagination": {"current_page": %s, "total_pages": 2}}
		}`, page, name, page)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	accounts, err := c.ListAssetAccounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, pagesServed)
	require.Len(t, accounts, 2)
	assert.Equal(t, "BT Current", accounts[0].Name)
	assert.Equal(t, "RO49BTRL0000000000000000", accounts[0].IBAN)
	assert.Equal(t, "Savings", accounts[1].Name)
}

func TestListCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/categories", r.URL.Path)
		fmt.Fprint(w, `{
			"data": [{"attributes": {"name": "Food"}}, {"attributes": {"name": "Transport"}}],
			"meta": {"pagination": {"current_page": 1, "total_pages": 1}}
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	names, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Transport"}, names)
}

func TestListDescriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/autocomplete/transactions", r.URL.Path)
		require.Equal(t, "99999", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `[{"name": "Mancare comandata"}, {"name": "Iesire"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	names, err := c.ListDescriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Mancare comandata", "Iesire"}, names)
}

func TestFindTransactionByExternalID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/search/transactions", r.URL.Path)

		switch r.URL.Query().Get("query") {
		case "external_id_is:REF1":
			fmt.Fprint(w, `{"data": [{"id": "42"}]}`)
		default:
			fmt.Fprint(w, `{"data": []}`)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")

	existing, err := c.FindTransactionByExternalID(context.Background(), "REF1")
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, "42", existing.ID)

	absent, err := c.FindTransactionByExternalID(context.Background(), "REF2")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestCreateTransaction(t *testing.T) {
	var got model.StoreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/transactions", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	txn := model.Transaction{
		ExternalID:         "REF1",
		Description:        "Mancare comandata",
		Date:               time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
		SourceAccount:      "BT Current",
		DestinationAccount: "Glovo",
		Amount:             decimal.NewFromInt(20),
		Type:               model.TypeWithdrawal,
		Tags:               model.DefaultTags(),
	}
	require.NoError(t, c.CreateTransaction(context.Background(), txn))

	assert.True(t, got.FireWebhooks)
	assert.False(t, got.ApplyRules)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, "REF1", got.Transactions[0].ExternalID)
	assert.Equal(t, "2025-01-14", got.Transactions[0].Date)
}

func TestCreateTransaction_Rejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Invalid source account."}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	txn := model.Transaction{ExternalID: "REF1", Amount: decimal.NewFromInt(20), Type: model.TypeWithdrawal}

	err := c.CreateTransaction(context.Background(), txn)
	require.Error(t, err)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "REF1", subErr.ExternalID)
	assert.Equal(t, http.StatusUnprocessableEntity, subErr.StatusCode)
	assert.Contains(t, subErr.Body, "Invalid source account")
	require.Len(t, subErr.Payload.Transactions, 1)
	assert.Equal(t, "REF1", subErr.Payload.Transactions[0].ExternalID)
}

func TestGet_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Unauthenticated"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-token")
	_, err := c.ListAssetAccounts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
