// Package optimize turns city metrics into operator suggestions.
package optimize

// Metrics is the latest reading of the three tracked city indicators.
type Metrics struct {
	Traffic float64 `json:"traffic"`
	Waste   float64 `json:"waste"`
	Water   float64 `json:"water"`
}

const (
	TrafficThreshold = 2.0
	WasteThreshold   = 70.0
	WaterThreshold   = 60.0
)

const (
	SuggestTraffic = "🚦 Too much traffic → Optimize signal timings or reroute vehicles."
	SuggestWaste   = "🗑️ High waste levels → Send more trucks for collection."
	SuggestWater   = "💧 Water shortage risk → Reduce non-essential usage."
	SuggestStable  = "✅ City is stable. No immediate action needed."
)

type rule struct {
	exceeded   func(Metrics) bool
	suggestion string
}

var rules = []rule{
	{func(m Metrics) bool { return m.Traffic > TrafficThreshold }, SuggestTraffic},
	{func(m Metrics) bool { return m.Waste > WasteThreshold }, SuggestWaste},
	{func(m Metrics) bool { return m.Water > WaterThreshold }, SuggestWater},
}

// Suggest evaluates every rule independently and returns the matching
// suggestions in rule order, or SuggestStable when none match.
func Suggest(m Metrics) []string {
	var out []string
	for _, r := range rules {
		if r.exceeded(m) {
			out = append(out, r.suggestion)
		}
	}
	if len(out) == 0 {
		out = append(out, SuggestStable)
	}
	return out
}
