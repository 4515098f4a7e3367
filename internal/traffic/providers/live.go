package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
)

// LiveTrafficProvider proxies a bearer-authenticated live traffic feed.
type LiveTrafficProvider struct {
	apiKey  string
	url     string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewLiveTrafficProvider(client *http.Client, feedURL, apiKey string) *LiveTrafficProvider {
	return &LiveTrafficProvider{
		apiKey:  apiKey,
		url:     feedURL,
		client:  client,
		circuit: newCircuitBreaker("live-traffic"),
	}
}

// Fetch returns the feed reply as received, including non-2xx replies.
func (p *LiveTrafficProvider) Fetch(ctx context.Context) (RawResponse, error) {
	if p.apiKey == "" {
		return RawResponse{}, fmt.Errorf("live traffic: %w", ErrMissingAPIKey)
	}

	req, err := http.NewRequest(http.MethodGet, p.url, nil)
	if err != nil {
		return RawResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	return doPassthrough(ctx, p.client, p.circuit, req)
}
