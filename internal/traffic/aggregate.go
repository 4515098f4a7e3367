package traffic

import "math"

// BuildGrid returns the sample points around a center: latitude offsets in the
// outer loop, longitude offsets in the inner loop, both ascending.
func BuildGrid(centerLat, centerLon float64) []SamplePoint {
	points := make([]SamplePoint, 0, GridSize)
	for _, dLat := range gridOffsets {
		for _, dLon := range gridOffsets {
			points = append(points, SamplePoint{
				Lat: centerLat + dLat,
				Lon: centerLon + dLon,
			})
		}
	}
	return points
}

// Intensity converts a flow sample into a congestion ratio clamped to
// [DefaultIntensity, MaxIntensity]. A zero current speed counts as free flow.
func Intensity(s FlowSample) float64 {
	free := DefaultFreeFlowSpeed
	if s.FreeFlowSpeed != nil {
		free = *s.FreeFlowSpeed
	}
	current := free
	if s.CurrentSpeed != nil && *s.CurrentSpeed != 0 {
		current = *s.CurrentSpeed
	}
	if current == 0 {
		// free itself was reported as zero; nothing to compare against.
		return 1.0
	}

	return math.Min(math.Max(free/current, DefaultIntensity), MaxIntensity)
}

// toPoint maps a lookup outcome onto its heatmap cell. Failed lookups get the
// default intensity so the grid stays complete.
func toPoint(o FlowOutcome) HeatmapPoint {
	intensity := DefaultIntensity
	if o.Err == nil {
		intensity = Intensity(o.Sample)
	}
	return HeatmapPoint{
		Lat:       o.Point.Lat,
		Lon:       o.Point.Lon,
		Intensity: intensity,
	}
}
