package traffic

import "context"

// FlowProvider abstracts a traffic flow source (e.g. TomTom flow segment data).
type FlowProvider interface {
	Name() string
	FetchFlow(ctx context.Context, p SamplePoint) (FlowSample, error)
}

// FlowOutcome is the result of a single per-point lookup. Err is set when the
// lookup failed for any reason; Sample is only meaningful when Err is nil.
type FlowOutcome struct {
	Point  SamplePoint
	Sample FlowSample
	Err    error
}
