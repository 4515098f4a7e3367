package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/smart-city-backend/internal/traffic"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestTomTomFetchFlow(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != flowSegmentPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("point"); got != "12.9716,77.5946" {
			t.Errorf("unexpected point %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("unexpected key %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"flowSegmentData":{"freeFlowSpeed":40,"currentSpeed":20,"confidence":1}}`))
	})

	p := NewTomTomFlowProvider(srv.Client(), srv.URL, "test-key")
	sample, err := p.FetchFlow(context.Background(), traffic.SamplePoint{Lat: 12.9716, Lon: 77.5946})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.FreeFlowSpeed == nil || *sample.FreeFlowSpeed != 40 {
		t.Errorf("unexpected freeFlowSpeed %v", sample.FreeFlowSpeed)
	}
	if sample.CurrentSpeed == nil || *sample.CurrentSpeed != 20 {
		t.Errorf("unexpected currentSpeed %v", sample.CurrentSpeed)
	}
	if got := traffic.Intensity(sample); got != 2.0 {
		t.Errorf("expected intensity 2.0, got %v", got)
	}
}

func TestTomTomFetchFlowMissingFields(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"flowSegmentData":{}}`))
	})

	p := NewTomTomFlowProvider(srv.Client(), srv.URL, "test-key")
	sample, err := p.FetchFlow(context.Background(), traffic.SamplePoint{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.FreeFlowSpeed != nil || sample.CurrentSpeed != nil {
		t.Errorf("expected absent fields, got %+v", sample)
	}
	if got := traffic.Intensity(sample); got != 1.0 {
		t.Errorf("expected intensity 1.0, got %v", got)
	}
}

func TestTomTomFetchFlowFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no flow data", http.StatusOK, `{"error":"Point too far from nearest existing segment."}`, ErrNoFlowData},
		{"malformed", http.StatusOK, `{"flowSegmentData":`, nil},
		{"rate limited", http.StatusTooManyRequests, `{}`, errRateLimited},
		{"server error", http.StatusBadGateway, `{}`, errServerError},
		{"forbidden", http.StatusForbidden, `{}`, errUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			p := NewTomTomFlowProvider(srv.Client(), srv.URL, "test-key")
			_, err := p.FetchFlow(context.Background(), traffic.SamplePoint{Lat: 1, Lon: 1})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTomTomMissingAPIKey(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	p := NewTomTomFlowProvider(srv.Client(), srv.URL, "")
	_, err := p.FetchFlow(context.Background(), traffic.SamplePoint{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no upstream calls, got %d", hits.Load())
	}
}

func TestTomTomTimeout(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	client := &http.Client{Timeout: 50 * time.Millisecond}
	p := NewTomTomFlowProvider(client, srv.URL, "test-key")
	if _, err := p.FetchFlow(context.Background(), traffic.SamplePoint{}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestTomTomFetchRaw(t *testing.T) {
	body := `{"flowSegmentData":{"frc":"FRC2","currentSpeed":33}}`
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	p := NewTomTomFlowProvider(srv.Client(), srv.URL, "test-key")
	raw, err := p.FetchRaw(context.Background(), traffic.SamplePoint{Lat: 1, Lon: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Status != http.StatusOK {
		t.Errorf("expected status 200, got %d", raw.Status)
	}
	if string(raw.Body) != body {
		t.Errorf("expected raw body %s, got %s", body, raw.Body)
	}
}

func TestFetchRawForwardsUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad request", http.StatusBadRequest, `{"detailedError":{"code":"INVALID_REQUEST","message":"Invalid point"}}`},
		{"forbidden", http.StatusForbidden, `{"detailedError":{"code":"FORBIDDEN"}}`},
		{"server error", http.StatusServiceUnavailable, `{"error":"maintenance"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			p := NewTomTomFlowProvider(srv.Client(), srv.URL, "test-key")
			raw, err := p.FetchRaw(context.Background(), traffic.SamplePoint{Lat: 1, Lon: 2})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if raw.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, raw.Status)
			}
			if string(raw.Body) != tt.body {
				t.Errorf("expected body %s, got %s", tt.body, raw.Body)
			}
		})
	}
}

func TestFetchRawRejectsNonJSONBody(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	p := NewTomTomFlowProvider(srv.Client(), srv.URL, "test-key")
	if _, err := p.FetchRaw(context.Background(), traffic.SamplePoint{}); !errors.Is(err, errInvalidBody) {
		t.Fatalf("expected invalid body error, got %v", err)
	}
}

func TestLiveTrafficFetch(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer live-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		w.Write([]byte(`{"segments":[{"id":1,"speed":42}]}`))
	})

	p := NewLiveTrafficProvider(srv.Client(), srv.URL, "live-key")
	raw, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Status != http.StatusOK || !strings.Contains(string(raw.Body), `"speed":42`) {
		t.Errorf("unexpected reply %d %s", raw.Status, raw.Body)
	}
}

func TestLiveTrafficUpstreamError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid token"}`))
	})

	p := NewLiveTrafficProvider(srv.Client(), srv.URL, "live-key")
	raw, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Status != http.StatusUnauthorized || string(raw.Body) != `{"message":"invalid token"}` {
		t.Errorf("expected forwarded 401 reply, got %d %s", raw.Status, raw.Body)
	}
}

func TestLiveTrafficEmptyErrorBody(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	p := NewLiveTrafficProvider(srv.Client(), srv.URL, "live-key")
	if _, err := p.Fetch(context.Background()); !errors.Is(err, errInvalidBody) {
		t.Fatalf("expected invalid body error, got %v", err)
	}
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	p := NewTomTomFlowProvider(srv.Client(), srv.URL, "test-key")
	for i := 0; i < 20; i++ {
		if _, err := p.FetchFlow(context.Background(), traffic.SamplePoint{}); !errors.Is(err, errServerError) {
			t.Fatalf("call %d: expected server error, got %v", i, err)
		}
	}

	_, err := p.FetchFlow(context.Background(), traffic.SamplePoint{})
	if !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if hits.Load() != 20 {
		t.Errorf("expected 20 upstream hits, got %d", hits.Load())
	}
}
