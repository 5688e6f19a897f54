package tax

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"landed-cost/pkg/api"
	"landed-cost/pkg/confidence"
)

// FallbackProvider answers for jurisdictions with no registered regime.
// Its defensible defaults keep the engine quoting something; the reduced
// confidence and fallback source tell the caller how approximate it is.
type FallbackProvider struct{}

func NewFallbackProvider() *FallbackProvider { return &FallbackProvider{} }

func (p *FallbackProvider) Name() string { return "fallback" }

func (p *FallbackProvider) GetRate(ctx context.Context, jurisdiction, itemClass string, valuation decimal.Decimal) api.RateResult {
	return fallbackRateResult()
}

// fallbackRateResult is the shared "rate unknown" answer: a conservative
// worldwide-median tax and duty estimate, clearly flagged.
func fallbackRateResult() api.RateResult {
	return api.RateResult{
		Rate:        decimal.RequireFromString("0.15"),
		CustomsRate: decimal.RequireFromString("0.10"),
		Confidence:  confidence.Low,
		Source:      api.SourceFallback,
		LastUpdated: time.Time{},
	}
}
