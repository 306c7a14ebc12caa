// Package custody wraps the custody service's HTTP API: wallet creation and
// import, asset transfers, and contract invocations executed on behalf of
// marketplace accounts. Everything here is an on-chain side effect; none of
// it can be rolled back once the service reports completion.
package custody

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"galleryflow/idempotency"
)

// ErrTransferFailed is returned when the custody service executed the
// operation but the chain rejected it.
var ErrTransferFailed = errors.New("custody: transfer failed on chain")

// Account identifies a wallet created by the custody service. Ref is the
// service-side handle needed to operate the wallet later.
type Account struct {
	Address string `json:"address"`
	Ref     string `json:"account_ref"`
}

// Receipt is the final outcome of a transfer or contract invocation.
type Receipt struct {
	Status string `json:"status"`
	TxID   string `json:"tx_id"`
}

// Completed reports whether the custody service confirmed the operation on
// chain.
func (r Receipt) Completed() bool { return r.Status == "completed" }

// Client talks to the custody service.
type Client struct {
	http *resty.Client
}

// NewClient builds a custody client for baseURL, authenticating with apiKey.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+apiKey),
	}
}

// CreateAccount provisions a new wallet on the given network.
func (c *Client) CreateAccount(ctx context.Context, network string) (Account, error) {
	var out Account
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"network": network}).
		SetResult(&out).
		Post("/v1/accounts")
	if err := checkResp(resp, err, "create account"); err != nil {
		return Account{}, err
	}
	if out.Address == "" || out.Ref == "" {
		return Account{}, fmt.Errorf("custody: create account: incomplete response %q/%q", out.Address, out.Ref)
	}
	return out, nil
}

// ImportAccount opens a handle to a previously created wallet.
func (c *Client) ImportAccount(ctx context.Context, accountRef string) (string, error) {
	var out struct {
		Handle string `json:"handle"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"account_ref": accountRef}).
		SetResult(&out).
		Post("/v1/accounts/import")
	if err := checkResp(resp, err, "import account"); err != nil {
		return "", err
	}
	if out.Handle == "" {
		return "", fmt.Errorf("custody: import account: empty handle")
	}
	return out.Handle, nil
}

// Transfer moves amount (smallest units) of asset from the wallet behind
// handle to destination and waits for the final status.
func (c *Client) Transfer(ctx context.Context, handle, asset string, amount int64, destination string) (Receipt, error) {
	var out Receipt
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"handle":      handle,
			"asset":       asset,
			"amount":      amount,
			"destination": destination,
		}).
		SetResult(&out).
		Post("/v1/transfers")
	if err := checkResp(resp, err, "transfer"); err != nil {
		return Receipt{}, err
	}
	if !out.Completed() {
		return out, fmt.Errorf("%w: status %s (tx %s)", ErrTransferFailed, out.Status, out.TxID)
	}
	return out, nil
}

// Invoke calls method on contractRef from the wallet behind handle.
func (c *Client) Invoke(ctx context.Context, handle, contractRef, method string, args []any) (Receipt, error) {
	var out Receipt
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"handle":   handle,
			"contract": contractRef,
			"method":   method,
			"args":     args,
		}).
		SetResult(&out).
		Post("/v1/invocations")
	if err := checkResp(resp, err, "invoke"); err != nil {
		return Receipt{}, err
	}
	if !out.Completed() {
		return out, fmt.Errorf("%w: %s %s status %s (tx %s)", ErrTransferFailed, contractRef, method, out.Status, out.TxID)
	}
	return out, nil
}

func checkResp(resp *resty.Response, err error, op string) error {
	if err != nil {
		return idempotency.MarkRetryable(fmt.Errorf("custody: %s: %w", op, err))
	}
	if resp.StatusCode() >= 500 {
		return idempotency.MarkRetryable(fmt.Errorf("custody: %s: service unavailable (%d): %s", op, resp.StatusCode(), resp.String()))
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("custody: %s: unexpected status %d: %s", op, resp.StatusCode(), resp.String())
	}
	return nil
}
