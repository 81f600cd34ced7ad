// Package stacks is a client for the Stacks Blockchain API endpoints used by the stacking api.
package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/chainpoint/stacking-api/types"
)

const (
	DefaultMainnetURL = "https://stacks-node-api.mainnet.stacks.co"
	DefaultTestnetURL = "https://stacks-node-api.testnet.stacks.co"
	maxResponseBytes  = 1 << 20
)

// APIError : non-2xx response from the upstream node
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stacks api %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

// ReadOnlyError : the node evaluated a read-only call and reported okay:false
type ReadOnlyError struct {
	Function string
	Cause    string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("read-only call %s failed: %s", e.Function, e.Cause)
}

// ChainAPI : the upstream calls the stacking application depends on
type ChainAPI interface {
	GetPoxInfo(ctx context.Context) (types.PoxInfo, error)
	GetCoreInfo(ctx context.Context) (types.CoreInfo, error)
	GetNetworkBlockTimes(ctx context.Context) (types.NetworkBlockTimes, error)
	GetAccountBalance(ctx context.Context, principal string) (types.AccountBalance, error)
	CallReadOnly(ctx context.Context, contractAddress, contractName, function, sender string, args []string) (types.ReadOnlyResult, error)
	BroadcastTransaction(ctx context.Context, rawTx []byte) (string, error)
	GetTransaction(ctx context.Context, txID string) (types.TxStatus, error)
}

// Client : http client for a Stacks Blockchain API node
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     log.Logger
}

var _ ChainAPI = (*Client)(nil)

// NewClient creates a client for baseURL; a zero timeout uses 10 seconds
func NewClient(baseURL string, timeout time.Duration, logger log.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		logger:     logger.With("module", "stacks"),
	}
}

func (c *Client) do(ctx context.Context, method string, path string, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("stacks api %s: %w", path, err)
	}
	defer resp.Body.Close()
	contents, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("stacks api %s: reading body: %w", path, err)
	}
	c.logger.Debug("Upstream call", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start).String())
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(contents))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(contents, out); err != nil {
		return fmt.Errorf("stacks api %s: decoding response: %w", path, err)
	}
	return nil
}

// GetPoxInfo : GET /v2/pox
func (c *Client) GetPoxInfo(ctx context.Context) (types.PoxInfo, error) {
	var pox types.PoxInfo
	err := c.do(ctx, http.MethodGet, "/v2/pox", "", nil, &pox)
	return pox, err
}

// GetCoreInfo : GET /v2/info
func (c *Client) GetCoreInfo(ctx context.Context) (types.CoreInfo, error) {
	var info types.CoreInfo
	err := c.do(ctx, http.MethodGet, "/v2/info", "", nil, &info)
	return info, err
}

// GetNetworkBlockTimes : GET /extended/v1/info/network_block_times
func (c *Client) GetNetworkBlockTimes(ctx context.Context) (types.NetworkBlockTimes, error) {
	var times types.NetworkBlockTimes
	err := c.do(ctx, http.MethodGet, "/extended/v1/info/network_block_times", "", nil, &times)
	return times, err
}

// GetAccountBalance : GET /extended/v1/address/{principal}/balances
func (c *Client) GetAccountBalance(ctx context.Context, principal string) (types.AccountBalance, error) {
	var balance types.AccountBalance
	path := fmt.Sprintf("/extended/v1/address/%s/balances", url.PathEscape(principal))
	err := c.do(ctx, http.MethodGet, path, "", nil, &balance)
	return balance, err
}

// CallReadOnly : POST /v2/contracts/call-read/{address}/{name}/{function}, args are 0x prefixed clarity hex
func (c *Client) CallReadOnly(ctx context.Context, contractAddress, contractName, function, sender string, args []string) (types.ReadOnlyResult, error) {
	var result types.ReadOnlyResult
	body, err := json.Marshal(types.ReadOnlyRequest{Sender: sender, Arguments: args})
	if err != nil {
		return result, err
	}
	path := fmt.Sprintf("/v2/contracts/call-read/%s/%s/%s",
		url.PathEscape(contractAddress), url.PathEscape(contractName), url.PathEscape(function))
	err = c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), &result)
	if err != nil {
		return result, err
	}
	if !result.Okay {
		return result, &ReadOnlyError{Function: function, Cause: result.Cause}
	}
	return result, nil
}

// BroadcastTransaction : POST /v2/transactions, returns the txid reported by the node
func (c *Client) BroadcastTransaction(ctx context.Context, rawTx []byte) (string, error) {
	var txID string
	err := c.do(ctx, http.MethodPost, "/v2/transactions", "application/octet-stream", bytes.NewReader(rawTx), &txID)
	if err != nil {
		return "", err
	}
	return NormalizeTxID(txID)
}

// GetTransaction : GET /extended/v1/tx/{txid}
func (c *Client) GetTransaction(ctx context.Context, txID string) (types.TxStatus, error) {
	var status types.TxStatus
	txID, err := NormalizeTxID(txID)
	if err != nil {
		return status, err
	}
	err = c.do(ctx, http.MethodGet, "/extended/v1/tx/"+txID, "", nil, &status)
	return status, err
}

// NormalizeTxID returns a lowercase 0x prefixed 32 byte transaction id
func NormalizeTxID(txID string) (string, error) {
	txID = strings.ToLower(strings.TrimSpace(txID))
	if !strings.HasPrefix(txID, "0x") {
		txID = "0x" + txID
	}
	b, err := hexutil.Decode(txID)
	if err != nil || len(b) != 32 {
		return "", fmt.Errorf("invalid transaction id %q", txID)
	}
	return txID, nil
}

// DefaultURL : the public api node for a network
func DefaultURL(network string) string {
	if network == types.NetworkMainnet {
		return DefaultMainnetURL
	}
	return DefaultTestnetURL
}

// SplitContractID splits "ADDRESS.name" into its address and contract name
func SplitContractID(contractID string) (string, string, error) {
	parts := strings.Split(contractID, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid contract id %q", contractID)
	}
	return parts[0], parts[1], nil
}
