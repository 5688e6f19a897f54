package tax

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"landed-cost/pkg/api"
)

// SalesTaxProvider serves origin sales-tax regimes. Rates are blended
// nationwide averages: the engine consults it for the origin jurisdiction
// when origin tax is enabled (export purchases are usually exempt, so this
// is off by default).
type SalesTaxProvider struct {
	rates map[string]decimal.Decimal
}

func NewSalesTaxProvider() *SalesTaxProvider {
	return &SalesTaxProvider{
		rates: map[string]decimal.Decimal{
			"US": rate("0.0725"),
			"CA": rate("0.12"),
		},
	}
}

func (p *SalesTaxProvider) Name() string { return "sales-tax" }

func (p *SalesTaxProvider) GetRate(ctx context.Context, jurisdiction, itemClass string, valuation decimal.Decimal) api.RateResult {
	r, ok := p.rates[strings.ToUpper(strings.TrimSpace(jurisdiction))]
	if !ok {
		return fallbackRateResult()
	}
	return api.RateResult{
		Rate:        r,
		CustomsRate: decimal.Zero,
		Confidence:  1.0,
		Source:      api.SourceCache,
		LastUpdated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
