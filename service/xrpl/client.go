package xrpl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/memofeed/service/metrics"
)

// RPCClient is an interface for the ledger JSON-RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real ledger nodes.
type RPCClient interface {
	CallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error
}

// ErrAccountNotFound is returned when the node does not know the account.
var ErrAccountNotFound = errors.New("account not found")

// RPCError is an error reported by the node inside a JSON-RPC result.
type RPCError struct {
	Method  string
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Code)
}

// ClientOptions configures paging behavior for account_tx.
type ClientOptions struct {
	// Endpoint identifies the node in metrics (e.g. "mainnet" or the RPC host).
	Endpoint string
	// PageLimit is the number of records requested per account_tx call.
	PageLimit int
	// MaxPages caps how many marker pages are followed per fetch. Zero means no cap.
	MaxPages int
	// Timeout bounds a whole fetch, across all of its pages. Zero means no bound.
	Timeout time.Duration
}

// Client provides methods for reading account history from a ledger node.
// It wraps the RPC client with domain-specific operations.
type Client struct {
	rpc     RPCClient
	opts    ClientOptions
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new ledger client.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, opts ClientOptions, m *metrics.Metrics, logger *slog.Logger) *Client {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 200
	}
	return &Client{
		rpc:     rpcClient,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

type accountTxResult struct {
	Status       string      `json:"status"`
	Error        string      `json:"error,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Account      string      `json:"account"`
	Marker       interface{} `json:"marker,omitempty"`
	Transactions []struct {
		Tx        *Transaction `json:"tx"`
		Validated bool         `json:"validated"`
	} `json:"transactions"`
}

type accountInfoResult struct {
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	AccountData  struct {
		Account   string `json:"Account"`
		EmailHash string `json:"EmailHash,omitempty"`
	} `json:"account_data"`
}

// AccountTransactions returns every transaction affecting account, newest first.
// It follows account_tx markers until the history is exhausted or the page cap
// is reached. Any failure, including cancellation, aborts the whole fetch.
func (c *Client) AccountTransactions(ctx context.Context, account string) ([]*Transaction, error) {
	return c.AccountTransactionsSince(ctx, account, 0)
}

// AccountTransactionsSince is like AccountTransactions but only returns
// transactions validated in minLedger or later. Zero means the whole history.
func (c *Client) AccountTransactionsSince(ctx context.Context, account string, minLedger uint32) ([]*Transaction, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	ledgerMin := int64(-1)
	if minLedger > 0 {
		ledgerMin = int64(minLedger)
	}

	var (
		records []*Transaction
		marker  interface{}
		pages   int
	)

	for ; c.opts.MaxPages == 0 || pages < c.opts.MaxPages; pages++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params := map[string]interface{}{
			"account":          account,
			"ledger_index_min": ledgerMin,
			"ledger_index_max": -1,
			"limit":            c.opts.PageLimit,
			"forward":          false,
		}
		if marker != nil {
			params["marker"] = marker
		}

		var result accountTxResult
		if err := c.call(ctx, "account_tx", params, &result); err != nil {
			c.logger.ErrorContext(ctx, "failed to fetch account transactions",
				"account", account,
				"page", pages,
				"error", err,
			)
			return nil, err
		}
		if result.Status == "error" {
			return nil, rpcErrorFrom("account_tx", result.Error, result.ErrorMessage)
		}

		c.metrics.RecordRPCRecordsPerCall(c.opts.Endpoint, float64(len(result.Transactions)))

		for _, entry := range result.Transactions {
			if entry.Tx == nil {
				continue
			}
			records = append(records, entry.Tx)
		}

		c.logger.DebugContext(ctx, "fetched account_tx page",
			"account", account,
			"page", pages,
			"count", len(result.Transactions),
			"has_marker", result.Marker != nil,
		)

		marker = result.Marker
		if marker == nil {
			break
		}
	}

	// A marker left over means the page cap cut the history short.
	if marker != nil {
		c.metrics.RecordHistoryTruncated(account, c.opts.Endpoint)
		c.logger.WarnContext(ctx, "account history truncated by page cap",
			"account", account,
			"max_pages", c.opts.MaxPages,
			"count", len(records),
		)
	}

	c.metrics.RecordTransactionsFetched(account, "ledger", len(records))
	c.logger.InfoContext(ctx, "fetched account transactions",
		"account", account,
		"count", len(records),
		"min_ledger", minLedger,
	)

	return records, nil
}

// AccountEmailHash returns the EmailHash field of the account's root entry.
// An empty string means the account has no email hash set.
func (c *Client) AccountEmailHash(ctx context.Context, account string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := map[string]interface{}{
		"account":      account,
		"ledger_index": "validated",
	}

	var result accountInfoResult
	if err := c.call(ctx, "account_info", params, &result); err != nil {
		return "", err
	}
	if result.Status == "error" {
		// Unfunded accounts have no root entry and therefore no email hash.
		if result.Error == "actNotFound" {
			return "", nil
		}
		return "", rpcErrorFrom("account_info", result.Error, result.ErrorMessage)
	}

	return result.AccountData.EmailHash, nil
}

// call issues a single JSON-RPC request and records its metrics.
// The node expects params as a one-element array holding the request object.
func (c *Client) call(ctx context.Context, method string, params map[string]interface{}, out interface{}) error {
	start := time.Now()
	err := c.rpc.CallForInto(ctx, out, method, []interface{}{params})
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.opts.Endpoint, duration)

	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opts.Timeout)
}

func rpcErrorFrom(method, code, message string) error {
	if code == "actNotFound" {
		return fmt.Errorf("%s: %w", method, ErrAccountNotFound)
	}
	return &RPCError{Method: method, Code: code, Message: message}
}
