package horizon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stellarcompass/compass/pkg/logger"
	"github.com/stellarcompass/compass/pkg/metrics"
	"go.uber.org/zap"
)

var (
	// ErrAccountNotFound means Horizon has no ledger entry for the address
	// (valid strkey, but unfunded or mistyped).
	ErrAccountNotFound = errors.New("account not found on the ledger")
)

// Balance is one entry of the Horizon account balances array. Amounts stay
// strings here; valuation parses them.
type Balance struct {
	Balance     string `json:"balance"`
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code,omitempty"`
	AssetIssuer string `json:"asset_issuer,omitempty"`
	Limit       string `json:"limit,omitempty"`
}

// Account is the subset of GET /accounts/{id} this service reads.
type Account struct {
	ID       string    `json:"id"`
	Sequence string    `json:"sequence"`
	Balances []Balance `json:"balances"`
}

// Transaction is the subset of a transaction record this service reads.
type Transaction struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	SourceAccount string    `json:"source_account"`
	Successful    bool      `json:"successful"`
}

type transactionsPage struct {
	Embedded struct {
		Records []Transaction `json:"records"`
	} `json:"_embedded"`
}

// Client is a thin Horizon REST client with bounded retries.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client against the given Horizon base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// GetAccount fetches the account entry (balances, sequence) for an address.
func (c *Client) GetAccount(ctx context.Context, address string) (*Account, error) {
	var acct Account
	path := "/accounts/" + url.PathEscape(address)
	if err := c.getJSON(ctx, "account", path, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// GetTransactions fetches the most recent transactions for an address,
// newest first.
func (c *Client) GetTransactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var page transactionsPage
	path := fmt.Sprintf("/accounts/%s/transactions?limit=%d&order=desc", url.PathEscape(address), limit)
	if err := c.getJSON(ctx, "transactions", path, &page); err != nil {
		return nil, err
	}
	return page.Embedded.Records, nil
}

// LastActivity returns the timestamp of the most recent successful
// transaction, or the zero time when the account has none.
func (c *Client) LastActivity(ctx context.Context, address string) (time.Time, error) {
	txs, err := c.GetTransactions(ctx, address, 50)
	if err != nil {
		return time.Time{}, err
	}
	for _, tx := range txs {
		if tx.Successful {
			return tx.CreatedAt, nil
		}
	}
	return time.Time{}, nil
}

// getJSON performs a GET with bounded exponential backoff. 4xx responses are
// permanent; everything else is retried up to 3 times.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, out interface{}) error {
	start := time.Now()
	defer func() {
		metrics.HorizonLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			logger.Log.Warn("horizon request failed", zap.String("endpoint", endpoint), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrAccountNotFound)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("horizon returned %d for %s", resp.StatusCode, endpoint))
		case resp.StatusCode != http.StatusOK:
			logger.Log.Warn("non-200 from horizon", zap.Int("code", resp.StatusCode), zap.String("endpoint", endpoint))
			return fmt.Errorf("horizon returned %d for %s", resp.StatusCode, endpoint)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("horizon json decode error: %w", err))
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx))
	metrics.HorizonRequests.WithLabelValues(endpoint, status(err)).Inc()
	return err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
