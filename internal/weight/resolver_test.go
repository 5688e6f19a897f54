package weight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"landed-cost/pkg/api"
	"landed-cost/pkg/confidence"
)

func TestExplicitWeightWinsWithFullConfidence(t *testing.T) {
	r := NewResolver(0.5)
	w := 3.2

	res := r.Resolve(api.ItemInput{ID: "a", WeightKg: &w, Category: "laptop"})
	assert.Equal(t, 3.2, res.WeightKg)
	assert.Equal(t, confidence.Exact, res.Confidence)
	assert.Equal(t, api.SourceExact, res.Source)
}

func TestCategoryHeuristic(t *testing.T) {
	r := NewResolver(0.5)

	res := r.Resolve(api.ItemInput{ID: "a", Category: "Laptop"})
	assert.Equal(t, 2.5, res.WeightKg)
	assert.Equal(t, confidence.Medium, res.Confidence)
}

func TestUnknownCategoryFallsBackToConfiguredDefault(t *testing.T) {
	r := NewResolver(0.75)

	res := r.Resolve(api.ItemInput{ID: "a", Category: "submarines"})
	assert.Equal(t, 0.75, res.WeightKg)
	assert.Equal(t, confidence.Floor, res.Confidence)
	assert.Equal(t, api.SourceFallback, res.Source)
}

func TestEmptyCategoryFallsBack(t *testing.T) {
	r := NewResolver(0.5)

	res := r.Resolve(api.ItemInput{ID: "a"})
	assert.Equal(t, 0.5, res.WeightKg)
	assert.Equal(t, api.SourceFallback, res.Source)
}
