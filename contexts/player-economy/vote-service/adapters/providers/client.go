package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 64 << 10
)

// parseFunc turns a 2xx response body into a confirmation.
type parseFunc func(body []byte) (ports.VoteConfirmation, error)

// Client checks one vote site's "has this player voted" endpoint.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	endpoint string
	query    func(apiKey string, userID string) url.Values
	parse    parseFunc
}

func newClient(baseURL string, apiKey string, endpoint string, query func(string, string) url.Values, parse parseFunc) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  strings.TrimSpace(apiKey),
		HTTPClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		endpoint: endpoint,
		query:    query,
		parse:    parse,
	}
}

func (c *Client) ConfirmVote(ctx context.Context, userID string, _ entities.VoteProvider) (ports.VoteConfirmation, error) {
	body, err := c.doRequest(ctx, c.query(c.APIKey, strings.TrimSpace(userID)))
	if err != nil {
		return ports.VoteConfirmation{}, err
	}
	return c.parse(body)
}

func (c *Client) doRequest(ctx context.Context, query url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s%s", c.BaseURL, c.endpoint)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("vote site error: status %d", resp.StatusCode)
	}
	return respBody, nil
}
