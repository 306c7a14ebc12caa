// Package chain resolves transaction identifiers to their confirmed on-chain
// effects through the chain indexer's HTTP API. It is a read-only
// collaborator: nothing here mutates chain state.
package chain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"galleryflow/idempotency"
)

// ErrTxNotFound is returned when the indexer has no confirmed record of the
// transaction. Unconfirmed transactions look identical to missing ones.
var ErrTxNotFound = errors.New("chain: transaction not found")

// Transfer is one asset movement inside a confirmed transaction. Amounts are
// in the asset's smallest unit (micro-USDC for USDC).
type Transfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}

// Effects is everything the marketplace needs to know about a transaction:
// whether it confirmed and succeeded, the transfers it performed, and its
// chain position (used only for freshness, never for ordering guarantees).
type Effects struct {
	Confirmed bool       `json:"confirmed"`
	Success   bool       `json:"success"`
	Transfers []Transfer `json:"transfers"`
	Position  int64      `json:"position"`
}

// Client talks to the chain indexer.
type Client struct {
	http *resty.Client
}

// NewClient builds a reader for the indexer at baseURL. Every request carries
// the given timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// TransactionEffects fetches the confirmed effects of txID.
//
// Transport failures and indexer 5xx responses are marked retryable: the
// lookup is read-only, so the caller may safely repeat the whole operation.
func (c *Client) TransactionEffects(ctx context.Context, txID string) (Effects, error) {
	var out Effects
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("txID", txID).
		Get("/v1/transactions/{txID}/effects")
	if err != nil {
		return Effects{}, idempotency.MarkRetryable(fmt.Errorf("chain: fetch effects for %s: %w", txID, err))
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return Effects{}, ErrTxNotFound
	case resp.StatusCode() >= 500:
		return Effects{}, idempotency.MarkRetryable(fmt.Errorf("chain: indexer unavailable (%d): %s", resp.StatusCode(), resp.String()))
	case resp.StatusCode() != http.StatusOK:
		return Effects{}, fmt.Errorf("chain: fetch effects for %s: unexpected status %d: %s", txID, resp.StatusCode(), resp.String())
	}

	return out, nil
}
