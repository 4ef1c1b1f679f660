package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBithompURL is the Bithomp API v2 base URL.
const DefaultBithompURL = "https://bithomp.com/api/v2"

// BithompClient resolves usernames through the Bithomp address API.
type BithompClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewBithompClient creates a Bithomp username resolver.
func NewBithompClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *BithompClient {
	if baseURL == "" {
		baseURL = DefaultBithompURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &BithompClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ResolveUsername returns the username registered for address, or "" if none.
func (c *BithompClient) ResolveUsername(ctx context.Context, address string) (string, error) {
	u := fmt.Sprintf("%s/address/%s?username=true", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-bithomp-token", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("bithomp request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Address  string `json:"address"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.DebugContext(ctx, "resolved bithomp username", "address", address, "found", payload.Username != "")
	return payload.Username, nil
}
