package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EndpointChecker checks that an OpenAI-compatible API is reachable and
// accepts the configured key, by listing models.
type EndpointChecker struct {
	url    string
	apiKey string
	client *http.Client
}

// NewEndpointChecker creates a checker for baseURL (e.g.
// "https://api.openai.com/v1").
func NewEndpointChecker(baseURL, apiKey string) *EndpointChecker {
	return &EndpointChecker{
		url:    strings.TrimRight(baseURL, "/") + "/models",
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// HealthCheck implements Checker. Only 2xx counts as healthy; 401 and 403 are
// reported separately since they mean the key, not the service, is wrong.
func (e *EndpointChecker) HealthCheck(ctx context.Context) error {
	if e.apiKey == "" {
		return fmt.Errorf("assistant api key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach assistant endpoint: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("assistant endpoint rejected api key: status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("assistant endpoint unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
