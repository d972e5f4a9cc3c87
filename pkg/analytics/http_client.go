package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/analyticsreporting/v4"

	"github.com/goliatone/go-formstats/components/formstats"
)

// DefaultBaseURL is the public Reporting API host.
const DefaultBaseURL = "https://analyticsreporting.googleapis.com"

const batchGetPath = "/v4/reports:batchGet"

// HTTPConfig configures the plain HTTP client. It suits reporting proxies
// that speak the batchGet wire format.
type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource
}

// HTTPClient posts report batches as JSON.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient builds a client. No request timeout is applied; callers
// bound requests through the context.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.TokenSource != nil {
		httpClient = &http.Client{
			Transport: &oauth2.Transport{Source: cfg.TokenSource, Base: httpClient.Transport},
		}
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

// BatchGet posts {reportRequests:[...]} and decodes the reports.
func (c *HTTPClient) BatchGet(ctx context.Context, descriptors []formstats.ReportDescriptor) (formstats.BatchResponse, error) {
	var resp analyticsreporting.GetReportsResponse
	if err := c.do(ctx, http.MethodPost, batchGetPath, toReportsRequest(descriptors), &resp); err != nil {
		return formstats.BatchResponse{}, err
	}
	return fromReportsResponse(&resp), nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("analytics: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("analytics: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("analytics: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("analytics: remote error %d: %s", resp.StatusCode, buf.String())
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("analytics: decode response: %w", err)
	}
	return nil
}
