// Package confidence provides confidence score math for quote calculations.
package confidence

import "math"

// Aggregate combines per-item confidence scores.
// Uses geometric mean so a single low-confidence item drags the whole
// quote down harder than an arithmetic mean would.
func Aggregate(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	product := 1.0
	for _, s := range scores {
		if s <= 0 {
			return 0
		}
		product *= s
	}

	return math.Pow(product, 1.0/float64(len(scores)))
}

// Decay reduces a base confidence once per degradation event.
// Fallback rates, provider timeouts and fee tier misses each count as one event.
func Decay(base float64, events int) float64 {
	if events <= 0 {
		return base
	}
	decayRate := 0.9
	return base * math.Pow(decayRate, float64(events))
}

// Clamp bounds a score to the valid range [0, 1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Confidence levels assigned by resolvers and providers.
const (
	Exact  = 1.0  // explicit input or identity conversion
	High   = 0.95 // live provider data
	Medium = 0.8  // cached data or heuristic lookup
	Low    = 0.6  // static fallback table
	Floor  = 0.3  // system-wide default with no supporting data
)
