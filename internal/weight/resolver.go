// Package weight estimates per-item shipping weight when the caller did not
// provide one. This is a local lookup+fallback estimator: it never blocks on
// network I/O.
package weight

import (
	"strings"

	"landed-cost/pkg/api"
	"landed-cost/pkg/confidence"
	"landed-cost/pkg/units"
)

// Resolver supplies item weights from, in order: the explicit input weight,
// a category-keyed heuristic table, the configured system-wide default.
type Resolver struct {
	table     map[string]float64 // category -> grams
	defaultKg float64
}

// NewResolver builds a resolver. defaultKg is the configured fallback weight
// for unknown categories, not a magic constant.
func NewResolver(defaultKg float64) *Resolver {
	return &Resolver{
		table:     categoryGrams,
		defaultKg: defaultKg,
	}
}

// Resolve returns the weight for one item.
func (r *Resolver) Resolve(item api.ItemInput) api.WeightResult {
	if item.WeightKg != nil {
		return api.WeightResult{
			WeightKg:   *item.WeightKg,
			Confidence: confidence.Exact,
			Source:     api.SourceExact,
		}
	}

	if grams, ok := r.table[normalizeCategory(item.Category)]; ok {
		return api.WeightResult{
			WeightKg:   units.GramsToKg(grams),
			Confidence: confidence.Medium,
			Source:     api.SourceCache,
		}
	}

	return api.WeightResult{
		WeightKg:   r.defaultKg,
		Confidence: confidence.Floor,
		Source:     api.SourceFallback,
	}
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// categoryGrams is the heuristic weight table, in grams. Calibrated against
// typical single-unit parcels for each storefront category.
var categoryGrams = map[string]float64{
	"electronics": 800,
	"phone":       400,
	"laptop":      2500,
	"tablet":      700,
	"camera":      900,
	"apparel":     500,
	"shoes":       1200,
	"books":       600,
	"cosmetics":   300,
	"toys":        900,
	"watches":     350,
	"jewelry":     150,
	"home":        2000,
	"kitchen":     1800,
	"sports":      1500,
	"supplements": 700,
	"accessories": 250,
	"bags":        1000,
}
