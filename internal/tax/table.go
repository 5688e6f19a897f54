package tax

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"landed-cost/pkg/api"
)

// regimeTable holds the static rate data for one jurisdiction.
type regimeTable struct {
	// Standard is the default tax rate for classes without an entry.
	Standard   decimal.Decimal
	ClassRates map[string]decimal.Decimal

	CustomsDefault decimal.Decimal
	CustomsRates   map[string]decimal.Decimal

	// Floors are minimum valuation amounts (USD) per class.
	Floors map[string]decimal.Decimal
	// ActualInvoiceClasses must always be taxed on the declared price.
	ActualInvoiceClasses map[string]bool

	// DutyDeMinimisUSD: shipments valued below this pay no customs duty.
	DutyDeMinimisUSD *decimal.Decimal

	// LastRevised is the revision date of the table, reported as the
	// LastUpdated timestamp for static lookups.
	LastRevised time.Time
}

// resolve looks up the rates for an item class and applies de-minimis
// relief. Static table lookups are authoritative, so they carry full
// confidence and count as cache-sourced data.
func (t regimeTable) resolve(itemClass string, valuation decimal.Decimal) api.RateResult {
	class := strings.ToLower(strings.TrimSpace(itemClass))

	rate := t.Standard
	if r, ok := t.ClassRates[class]; ok {
		rate = r
	}

	customs := t.CustomsDefault
	if c, ok := t.CustomsRates[class]; ok {
		customs = c
	}
	if t.DutyDeMinimisUSD != nil && valuation.LessThan(*t.DutyDeMinimisUSD) {
		customs = decimal.Zero
	}

	result := api.RateResult{
		Rate:        rate,
		CustomsRate: customs,
		Confidence:  1.0,
		Source:      api.SourceCache,
		LastUpdated: t.LastRevised,
	}
	if t.ActualInvoiceClasses[class] {
		result.Basis = api.BasisActualInvoiceRequired
	}
	if floor, ok := t.Floors[class]; ok {
		result.MinimumValuation = &api.MinimumValuation{Amount: floor, Currency: "USD"}
	}
	return result
}

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ratePtr(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}
