package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/i474232898/smart-city-backend/internal/logging"
	"github.com/i474232898/smart-city-backend/internal/metrics"
)

var (
	// ErrMissingAPIKey is returned when a provider that needs a credential has none.
	ErrMissingAPIKey = errors.New("api key is not configured")

	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
	errInvalidBody  = errors.New("upstream body is not valid JSON")
)

// RawResponse is an upstream reply forwarded to the caller unchanged.
type RawResponse struct {
	Status int
	Body   json.RawMessage
}

// upstreamStatusError lets a failing reply count against the breaker while
// keeping its body for pass-through.
type upstreamStatusError struct {
	raw RawResponse
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.raw.Status)
}

// newCircuitBreaker returns the breaker settings shared by all traffic providers.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		// One heatmap issues 9 calls, so require a meaningful sample first.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 20 && counts.TotalFailures*10 >= counts.Requests*6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

// doRequest executes a single request through the circuit breaker. There is no
// retry: a failed call is reported to the caller as is.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			default:
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}
		}

		return resp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamRequests.WithLabelValues(cb.Name(), metrics.OutcomeCircuitOpen).Inc()
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		metrics.UpstreamRequests.WithLabelValues(cb.Name(), metrics.OutcomeError).Inc()
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	metrics.UpstreamRequests.WithLabelValues(cb.Name(), metrics.OutcomeSuccess).Inc()
	return resp, nil
}

// doPassthrough executes a single request through the circuit breaker and
// returns whatever status and JSON body the upstream answered with. Only
// 429 and 5xx replies count as breaker failures; client errors are forwarded
// as ordinary replies.
func doPassthrough(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
) (RawResponse, error) {
	if client == nil {
		return RawResponse{}, errNoHTTPClient
	}

	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}
		if !json.Valid(body) {
			return nil, fmt.Errorf("%w: status %d", errInvalidBody, resp.StatusCode)
		}

		raw := RawResponse{Status: resp.StatusCode, Body: body}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &upstreamStatusError{raw: raw}
		}
		return raw, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamRequests.WithLabelValues(cb.Name(), metrics.OutcomeCircuitOpen).Inc()
			return RawResponse{}, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		metrics.UpstreamRequests.WithLabelValues(cb.Name(), metrics.OutcomeError).Inc()

		var statusErr *upstreamStatusError
		if errors.As(err, &statusErr) {
			return statusErr.raw, nil
		}
		return RawResponse{}, err
	}

	raw, ok := result.(RawResponse)
	if !ok {
		return RawResponse{}, fmt.Errorf("unexpected result type from circuit breaker")
	}
	metrics.UpstreamRequests.WithLabelValues(cb.Name(), metrics.OutcomeSuccess).Inc()
	return raw, nil
}
