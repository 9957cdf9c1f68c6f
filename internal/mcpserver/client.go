package mcpserver

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
)

// Config holds the configuration for connecting to the Bridgewatch API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	APIKey string // Optional API key for deployments behind an auth proxy
}

// BridgewatchClient is a pure HTTP client for the Bridgewatch API.
type BridgewatchClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewBridgewatchClient creates a new client for the Bridgewatch API.
func NewBridgewatchClient(cfg Config) *BridgewatchClient {
	return &BridgewatchClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *BridgewatchClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// RunScan submits a batch of bridge transactions for analysis.
func (c *BridgewatchClient) RunScan(ctx context.Context, bridgeAddress, network string, transactions []map[string]any) (json.RawMessage, error) {
	body := map[string]any{
		"bridgeAddress": bridgeAddress,
		"network":       network,
		"transactions":  transactions,
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/scans", nil, body)
}

// GetScan fetches a previously recorded scan by ID.
func (c *BridgewatchClient) GetScan(ctx context.Context, scanID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/scans/"+scanID, nil, nil)
}

// ListScans lists recent scans for a bridge address.
func (c *BridgewatchClient) ListScans(ctx context.Context, bridgeAddress string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/bridges/"+bridgeAddress+"/scans", q, nil)
}

// ListAlerts lists recent alerts for a bridge address.
func (c *BridgewatchClient) ListAlerts(ctx context.Context, bridgeAddress string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/bridges/"+bridgeAddress+"/alerts", q, nil)
}

// ValidateSignature runs a single signature through the forgery detector.
func (c *BridgewatchClient) ValidateSignature(ctx context.Context, signature, message, publicKey, expectedSigner string) (json.RawMessage, error) {
	check := map[string]string{
		"signature": signature,
		"message":   message,
	}
	if publicKey != "" {
		check["publicKey"] = publicKey
	}
	if expectedSigner != "" {
		check["expectedSigner"] = expectedSigner
	}
	body := map[string]any{"signatures": []map[string]string{check}}
	return c.doRequest(ctx, http.MethodPost, "/v1/signatures/validate", nil, body)
}

// ListPatterns lists the known attack patterns.
func (c *BridgewatchClient) ListPatterns(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/patterns", nil, nil)
}

// GetPattern fetches a single attack pattern by name.
func (c *BridgewatchClient) GetPattern(ctx context.Context, name string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/patterns/"+name, nil, nil)
}
