package tax

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"landed-cost/pkg/api"
)

// VATProvider serves destination-VAT regimes (EU members and the UK) from
// static tables: standard rate per country, reduced rates for a handful of
// classes, and the common EU duty de-minimis.
type VATProvider struct {
	tables map[string]regimeTable
}

func NewVATProvider() *VATProvider {
	return &VATProvider{tables: vatTables}
}

func (p *VATProvider) Name() string { return "vat" }

func (p *VATProvider) GetRate(ctx context.Context, jurisdiction, itemClass string, valuation decimal.Decimal) api.RateResult {
	table, ok := p.tables[strings.ToUpper(strings.TrimSpace(jurisdiction))]
	if !ok {
		return fallbackRateResult()
	}
	return table.resolve(itemClass, valuation)
}

// vatTable builds a VAT regime table: standard rate, reduced rate for books,
// and the shared EU customs profile (duty de-minimis at ~150 EUR).
func vatTable(standard, reducedBooks string) regimeTable {
	return regimeTable{
		Standard: rate(standard),
		ClassRates: map[string]decimal.Decimal{
			"books": rate(reducedBooks),
		},
		CustomsDefault: rate("0.042"),
		CustomsRates: map[string]decimal.Decimal{
			"electronics": rate("0.00"),
			"laptop":      rate("0.00"),
			"phone":       rate("0.00"),
			"apparel":     rate("0.12"),
			"shoes":       rate("0.17"),
			"books":       rate("0.00"),
		},
		DutyDeMinimisUSD: ratePtr("165.00"),
		LastRevised:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var vatTables = map[string]regimeTable{
	"GB": vatTable("0.20", "0.00"),
	"DE": vatTable("0.19", "0.07"),
	"FR": vatTable("0.20", "0.055"),
	"IT": vatTable("0.22", "0.04"),
	"ES": vatTable("0.21", "0.04"),
	"NL": vatTable("0.21", "0.09"),
	"BE": vatTable("0.21", "0.06"),
	"IE": vatTable("0.23", "0.00"),
	"PT": vatTable("0.23", "0.06"),
	"AT": vatTable("0.20", "0.10"),
	"FI": vatTable("0.24", "0.10"),
	"SE": vatTable("0.25", "0.06"),
	"DK": vatTable("0.25", "0.25"),
	"PL": vatTable("0.23", "0.05"),
	"CH": vatTable("0.081", "0.026"),
	"NO": vatTable("0.25", "0.00"),
}
