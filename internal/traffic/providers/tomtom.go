package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/i474232898/smart-city-backend/internal/traffic"
)

// ErrNoFlowData is returned when the upstream answered without a flowSegmentData object.
var ErrNoFlowData = errors.New("no flow segment data in response")

const flowSegmentPath = "/traffic/services/4/flowSegmentData/absolute/10/json"

// TomTomFlowProvider implements traffic.FlowProvider for the TomTom Flow Segment Data API.
type TomTomFlowProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewTomTomFlowProvider(client *http.Client, baseURL, apiKey string) *TomTomFlowProvider {
	if baseURL == "" {
		baseURL = "https://api.tomtom.com"
	}
	return &TomTomFlowProvider{
		name:    "tomtom",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		circuit: newCircuitBreaker("tomtom-flow"),
	}
}

func (p *TomTomFlowProvider) Name() string {
	return p.name
}

type flowSegmentPayload struct {
	FlowSegmentData *struct {
		FreeFlowSpeed *float64 `json:"freeFlowSpeed"`
		CurrentSpeed  *float64 `json:"currentSpeed"`
	} `json:"flowSegmentData"`
}

// FetchFlow looks up the flow segment nearest to pt.
func (p *TomTomFlowProvider) FetchFlow(ctx context.Context, pt traffic.SamplePoint) (traffic.FlowSample, error) {
	resp, err := p.get(ctx, pt)
	if err != nil {
		return traffic.FlowSample{}, err
	}
	defer resp.Body.Close()

	var payload flowSegmentPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return traffic.FlowSample{}, fmt.Errorf("decode flow segment: %w", err)
	}
	if payload.FlowSegmentData == nil {
		return traffic.FlowSample{}, ErrNoFlowData
	}

	return traffic.FlowSample{
		FreeFlowSpeed: payload.FlowSegmentData.FreeFlowSpeed,
		CurrentSpeed:  payload.FlowSegmentData.CurrentSpeed,
	}, nil
}

// FetchRaw returns the flow segment reply for pt with the upstream status,
// including non-2xx replies.
func (p *TomTomFlowProvider) FetchRaw(ctx context.Context, pt traffic.SamplePoint) (RawResponse, error) {
	req, err := p.newRequest(pt)
	if err != nil {
		return RawResponse{}, err
	}
	return doPassthrough(ctx, p.client, p.circuit, req)
}

func (p *TomTomFlowProvider) get(ctx context.Context, pt traffic.SamplePoint) (*http.Response, error) {
	req, err := p.newRequest(pt)
	if err != nil {
		return nil, err
	}
	return doRequest(ctx, p.client, p.circuit, req)
}

func (p *TomTomFlowProvider) newRequest(pt traffic.SamplePoint) (*http.Request, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("tomtom: %w", ErrMissingAPIKey)
	}

	values := url.Values{}
	values.Set("point", formatCoord(pt.Lat)+","+formatCoord(pt.Lon))
	values.Set("key", p.apiKey)

	u := fmt.Sprintf("%s%s?%s", p.baseURL, flowSegmentPath, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
