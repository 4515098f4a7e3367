package traffic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/smart-city-backend/internal/logging"
	"github.com/i474232898/smart-city-backend/internal/metrics"
)

// ErrInvalidInput is returned when a center coordinate is missing or not a number.
var ErrInvalidInput = errors.New("invalid input")

// Service computes congestion heatmaps from a flow provider.
type Service struct {
	provider     FlowProvider
	pointTimeout time.Duration
}

// NewService creates a new Service. pointTimeout bounds each per-point lookup;
// zero leaves it to the provider's HTTP client.
func NewService(provider FlowProvider, pointTimeout time.Duration) *Service {
	return &Service{
		provider:     provider,
		pointTimeout: pointTimeout,
	}
}

// ParseCenter parses the string-encoded center coordinate of a heatmap request.
func ParseCenter(lat, lon string) (float64, float64, error) {
	centerLat, err := parseCoordinate("lat", lat)
	if err != nil {
		return 0, 0, err
	}
	centerLon, err := parseCoordinate("lon", lon)
	if err != nil {
		return 0, 0, err
	}
	return centerLat, centerLon, nil
}

func parseCoordinate(name, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidInput, name)
	}
	return v, nil
}

// ComputeHeatmap queries the provider for every grid point around the center
// concurrently and returns one point per grid cell in grid order. Per-point
// failures degrade to DefaultIntensity and never fail the call.
func (s *Service) ComputeHeatmap(ctx context.Context, centerLat, centerLon float64) (HeatmapResult, error) {
	if s.provider == nil {
		return HeatmapResult{}, fmt.Errorf("no flow provider configured")
	}

	start := time.Now()
	defer func() {
		metrics.HeatmapDuration.Observe(time.Since(start).Seconds())
	}()

	grid := BuildGrid(centerLat, centerLon)
	outcomes := make([]FlowOutcome, len(grid))

	// Goroutines never return an error, so a failed point cannot cancel its siblings.
	var g errgroup.Group
	g.SetLimit(GridSize)
	for i, p := range grid {
		g.Go(func() error {
			outcomes[i] = s.fetch(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	points := make([]HeatmapPoint, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			metrics.HeatmapDegradedPoints.Inc()
			logging.Warn().
				Err(o.Err).
				Str("provider", s.provider.Name()).
				Float64("lat", o.Point.Lat).
				Float64("lon", o.Point.Lon).
				Msg("flow lookup failed; using default intensity")
		}
		points = append(points, toPoint(o))
	}

	return HeatmapResult{Points: points}, nil
}

func (s *Service) fetch(ctx context.Context, p SamplePoint) (out FlowOutcome) {
	out.Point = p

	// A panicking provider degrades one point like any other failure.
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("flow provider panic: %v", r)
		}
	}()

	if s.pointTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pointTimeout)
		defer cancel()
	}

	out.Sample, out.Err = s.provider.FetchFlow(ctx, p)
	return out
}
