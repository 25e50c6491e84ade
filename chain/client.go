// Copyright 2026 Kestrel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	defaultMaxAttempts = 5
	defaultRetryBase   = 100 * time.Millisecond
	defaultHTTPTimeout = 30 * time.Second

	// chain timestamps carry no zone suffix and are implicitly UTC
	expirationLayout = "2006-01-02T15:04:05"
)

// ClientConfig configures the chain RPC client.
type ClientConfig struct {
	URL         string
	ExpireIn    time.Duration // expiry override for prepared transactions
	MaxAttempts int
	RetryBase   time.Duration
}

// Client calls the external chain gateway over JSON-RPC. Transient
// failures are retried with capped exponential backoff; everything else
// propagates immediately. There is no circuit breaker, so a persistently
// failing endpoint stalls callers for the full retry budget.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	configCache *ConfigCache
	metrics     *clientMetrics
	nextID      atomic.Uint64
}

type clientMetrics struct {
	requests *prometheus.CounterVec
	retries  prometheus.Counter
	failures prometheus.Counter
}

// NewClient creates a chain RPC client. The config cache is owned by the
// caller so its lifetime is explicit rather than hidden client state.
func NewClient(
	cfg ClientConfig,
	configCache *ConfigCache,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) *Client {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "chain")
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	c := &Client{
		config:      cfg,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:      logger,
		configCache: configCache,
		metrics: &clientMetrics{
			requests: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "kestrel_chain_rpc_requests_total",
					Help: "Total chain RPC requests by method",
				},
				[]string{"method"},
			),
			retries: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "kestrel_chain_rpc_retries_total",
					Help: "Total chain RPC attempts retried after a transient failure",
				},
			),
			failures: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "kestrel_chain_rpc_failures_total",
					Help: "Total chain RPC calls that failed after exhausting retries",
				},
			),
		},
	}
	if promRegistry != nil {
		promRegistry.MustRegister(
			c.metrics.requests,
			c.metrics.retries,
			c.metrics.failures,
		)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// call performs a single JSON-RPC round trip.
func (c *Client) do(
	ctx context.Context,
	method string,
	params any,
) (json.RawMessage, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.config.URL,
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode}
	}
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// call wraps do with transient-failure retries.
func (c *Client) call(
	ctx context.Context,
	method string,
	params any,
	result any,
) error {
	c.metrics.requests.WithLabelValues(method).Inc()
	var lastErr error
	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.metrics.retries.Inc()
			if err := sleepContext(
				ctx,
				backoffDelay(c.config.RetryBase, attempt-1),
			); err != nil {
				return err
			}
		}
		raw, err := c.do(ctx, method, params)
		if err == nil {
			if result == nil {
				return nil
			}
			return json.Unmarshal(raw, result)
		}
		lastErr = err
		if !IsTransient(err) {
			break
		}
		c.logger.Warn(
			"transient chain rpc failure",
			"method", method,
			"attempt", attempt+1,
			"error", err,
		)
	}
	// fatal errors propagate without counting as failures; the counter
	// tracks calls that stayed transient through the whole retry budget
	if IsTransient(lastErr) {
		c.metrics.failures.Inc()
	}
	return lastErr
}

type configResult struct {
	AddressPrefix string `json:"address_prefix"`
	ChainID       string `json:"chain_id"`
}

// Config returns the chain deployment configuration, cached for the
// process lifetime after the first successful fetch.
func (c *Client) Config(ctx context.Context) (*Config, error) {
	return c.configCache.Get(
		ctx,
		func(ctx context.Context) (*Config, error) {
			var result configResult
			if err := c.call(ctx, "get_config", nil, &result); err != nil {
				return nil, err
			}
			return &Config{
				AddressPrefix: result.AddressPrefix,
				ChainID:       result.ChainID,
			}, nil
		},
	)
}

type dynamicGlobalProperties struct {
	LastIrreversibleBlockNum int64 `json:"last_irreversible_block_num"`
}

// LastIrreversibleBlock returns the height of the newest block that can
// no longer be reverted.
func (c *Client) LastIrreversibleBlock(
	ctx context.Context,
) (int64, error) {
	var result dynamicGlobalProperties
	err := c.call(ctx, "get_dynamic_global_properties", nil, &result)
	if err != nil {
		return 0, err
	}
	return result.LastIrreversibleBlockNum, nil
}

type chainAccount struct {
	Name     string            `json:"name"`
	Balances map[string]string `json:"balances"`
}

// Balance returns the externally observed balance of an account in
// display units. An asset the account never held reads as zero.
func (c *Client) Balance(
	ctx context.Context,
	account string,
	assetID string,
) (decimal.Decimal, error) {
	var result []chainAccount
	err := c.call(ctx, "get_accounts", [][]string{{account}}, &result)
	if err != nil {
		return decimal.Zero, err
	}
	if len(result) == 0 {
		return decimal.Zero, fmt.Errorf("account %q not found", account)
	}
	raw, ok := result[0].Balances[assetID]
	if !ok {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf(
			"malformed balance %q for account %q: %w",
			raw,
			account,
			err,
		)
	}
	return value, nil
}

// PrepareTransaction asks the chain for an unsigned transaction bundling
// the given operations. When an expiry override is configured the
// transaction expiration is replaced with now + override.
func (c *Client) PrepareTransaction(
	ctx context.Context,
	operations []TransferOperation,
) (*Transaction, error) {
	if len(operations) == 0 {
		return nil, errors.New("no operations to prepare")
	}
	params := map[string]any{"operations": operations}
	tx := &Transaction{}
	if err := c.call(ctx, "prepare_transaction", params, tx); err != nil {
		return nil, err
	}
	if c.config.ExpireIn > 0 {
		tx.Expiration = time.Now().
			UTC().
			Add(c.config.ExpireIn).
			Format(expirationLayout)
	}
	return tx, nil
}

type broadcastResult struct {
	ID string `json:"id"`
}

// Send broadcasts a signed transaction and returns the transaction id
// assigned by the node.
func (c *Client) Send(
	ctx context.Context,
	tx *SignedTransaction,
) (string, error) {
	var result broadcastResult
	err := c.call(ctx, "broadcast_transaction", []any{tx}, &result)
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

// ParseExpiration parses a chain expiration timestamp into UTC.
func ParseExpiration(s string) (time.Time, error) {
	return time.Parse(expirationLayout, s)
}
