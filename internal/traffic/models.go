package traffic

// GridDelta is the angular spacing between heatmap sample points (~150m).
const GridDelta = 0.0015

const (
	// DefaultIntensity is used for any point whose flow lookup failed.
	DefaultIntensity = 0.5
	// MaxIntensity caps the congestion ratio.
	MaxIntensity = 3.0
	// DefaultFreeFlowSpeed applies when the provider omits freeFlowSpeed.
	DefaultFreeFlowSpeed = 50.0
)

// gridOffsets are applied in ascending order on both axes.
var gridOffsets = [3]float64{-GridDelta, 0, GridDelta}

// GridSize is the number of sample points in one heatmap.
const GridSize = len(gridOffsets) * len(gridOffsets)

// SamplePoint is a coordinate the flow provider is queried at.
type SamplePoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FlowSample is the subset of a flow segment response we care about.
// Nil fields were absent in the upstream payload.
type FlowSample struct {
	FreeFlowSpeed *float64
	CurrentSpeed  *float64
}

// HeatmapPoint is one weighted cell of the heatmap.
type HeatmapPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Intensity float64 `json:"intensity"`
}

// HeatmapResult is the full grid, ordered row-major by latitude then longitude.
type HeatmapResult struct {
	Points []HeatmapPoint `json:"points"`
}
