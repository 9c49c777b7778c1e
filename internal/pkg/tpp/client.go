package tpp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds TPP API configuration
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	// Retailer is the registered retailer account purchases are settled against
	Retailer string
	SenderID string
	// PurchaseTimeout bounds topup calls, QueryTimeout bounds status/balance/SMS calls
	PurchaseTimeout time.Duration
	QueryTimeout    time.Duration
}

// Client represents the TPP settlement provider client
type Client struct {
	httpClient *http.Client
	config     Config
}

// TopupRequest represents an airtime purchase request
type TopupRequest struct {
	Recipient string
	Amount    decimal.Decimal
	Network   string
	// Reference is the transaction reference, passed as the provider's idempotency token
	Reference string
}

// BundleRequest represents a data bundle purchase request
type BundleRequest struct {
	Recipient string
	Amount    decimal.Decimal
	Network   string
	DataCode  string
	Reference string
}

// NewClient creates a new TPP API client
func NewClient(cfg Config) *Client {
	if cfg.PurchaseTimeout == 0 {
		cfg.PurchaseTimeout = 15 * time.Second
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.PurchaseTimeout},
		config:     cfg,
	}
}

// AirtimeTopup initiates an airtime purchase. The provider treats the
// reference as an idempotency token, so retries with the same reference
// are safe.
func (c *Client) AirtimeTopup(ctx context.Context, req TopupRequest) (*Response, error) {
	if req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, fmt.Errorf("validation error: reference must be non-empty")
	}

	params := url.Values{}
	params.Set("retailer", c.config.Retailer)
	params.Set("recipient", req.Recipient)
	params.Set("amount", req.Amount.StringFixed(2))
	params.Set("network", req.Network)
	params.Set("trxn", req.Reference)

	body, err := c.get(ctx, "/TopUpApi/airtime", params, c.config.PurchaseTimeout)
	if err != nil {
		return nil, err
	}
	return parseResponse(body)
}

// DataBundle initiates a data bundle purchase
func (c *Client) DataBundle(ctx context.Context, req BundleRequest) (*Response, error) {
	if strings.TrimSpace(req.DataCode) == "" {
		return nil, fmt.Errorf("validation error: data_code must be non-empty")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, fmt.Errorf("validation error: reference must be non-empty")
	}

	params := url.Values{}
	params.Set("retailer", c.config.Retailer)
	params.Set("recipient", req.Recipient)
	params.Set("data_code", req.DataCode)
	params.Set("network", req.Network)
	params.Set("trxn", req.Reference)

	body, err := c.get(ctx, "/TopUpApi/dataBundle", params, c.config.PurchaseTimeout)
	if err != nil {
		return nil, err
	}
	return parseResponse(body)
}

// TransactionStatus queries the outcome of a previously submitted purchase
func (c *Client) TransactionStatus(ctx context.Context, reference string) (*Response, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("validation error: reference must be non-empty")
	}

	params := url.Values{}
	params.Set("trxn", reference)

	body, err := c.get(ctx, "/TopUpApi/transactionStatus", params, c.config.QueryTimeout)
	if err != nil {
		return nil, err
	}
	return parseResponse(body)
}

// DataBundleList fetches the bundle plans available on a network
func (c *Client) DataBundleList(ctx context.Context, network string) ([]byte, error) {
	params := url.Values{}
	params.Set("network", network)

	return c.get(ctx, "/TopUpApi/dataBundleList", params, c.config.QueryTimeout)
}

// Balance fetches the retailer's balance at the provider
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("retailer", c.config.Retailer)

	body, err := c.get(ctx, "/TopUpApi/balance", params, c.config.QueryTimeout)
	if err != nil {
		return decimal.Zero, err
	}
	return parseBalance(body)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, timeout time.Duration) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("tpp client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return nil, fmt.Errorf("tpp config error: base_url is empty")
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	endpoint := base + path + "?" + params.Encode()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("tpp api call failed: %w", err)
	}

	httpReq.Header.Set("ApiKey", c.config.APIKey)
	httpReq.Header.Set("ApiSecret", c.config.APISecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	return body, nil
}
