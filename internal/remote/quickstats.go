package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const quickStatsBaseURL = "https://quickstats.nass.usda.gov/api"

// QuickStatsConfig carries the NASS API key, from a JSON file or the
// QUICKSTATS_API_KEY environment variable.
type QuickStatsConfig struct {
	APIKey string `json:"api_key"`
}

// LoadQuickStatsConfig reads credentials, preferring the file.
func LoadQuickStatsConfig(path string) (QuickStatsConfig, error) {
	var cfg QuickStatsConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("QUICKSTATS_API_KEY")
	}
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("no QuickStats API key configured")
	}

	return cfg, nil
}

// QuickStats is a client for the USDA NASS QuickStats service.
type QuickStats struct {
	client  *http.Client
	baseURL string
	key     string
}

// NewQuickStats builds a client. A nil http.Client uses the default.
func NewQuickStats(client *http.Client, cfg QuickStatsConfig) *QuickStats {
	if client == nil {
		client = http.DefaultClient
	}
	return &QuickStats{client: client, baseURL: quickStatsBaseURL, key: cfg.APIKey}
}

// Get issues a QuickStats GET, e.g. endpoint "api_GET" with params
// {"commodity_desc": "CORN", "year__GE": "2012", "state_alpha": "VA"},
// returning the raw JSON response.
func (q *QuickStats) Get(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error) {
	vals := url.Values{"key": {q.key}}
	for k, v := range params {
		vals.Set(k, v)
	}

	u := fmt.Sprintf("%s/%s/?%s", q.baseURL, strings.Trim(endpoint, "/"), vals.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("quickstats %s: status %d", endpoint, resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("quickstats %s: %w", endpoint, err)
	}

	return raw, nil
}

// GetCounts returns the record count a query would produce, which the
// service caps per request.
func (q *QuickStats) GetCounts(ctx context.Context, params map[string]string) (int, error) {
	raw, err := q.Get(ctx, "get_counts", params)
	if err != nil {
		return 0, err
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0, err
	}

	return body.Count, nil
}
