// Package tax provides jurisdiction tax rate providers behind a uniform
// never-fail interface, plus the registry that routes a country code to its
// tax regime.
package tax

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"landed-cost/pkg/api"
)

// Provider resolves the destination tax and customs duty rates for one
// jurisdiction/item-class pair.
//
// Implementations must honor the caller's context deadline and must never
// fail for "rate unknown": they return a RateResult flagged Source=fallback
// with reduced confidence instead. This uniform contract is what lets the
// orchestrator aggregate heterogeneous providers without per-provider error
// handling.
type Provider interface {
	Name() string
	GetRate(ctx context.Context, jurisdiction, itemClass string, valuation decimal.Decimal) api.RateResult
}

// Registry routes jurisdiction codes to providers. Unregistered
// jurisdictions get the static fallback provider.
type Registry struct {
	providers map[string]Provider
	fallback  Provider
}

func NewRegistry(fallback Provider) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		fallback:  fallback,
	}
}

// Register binds a jurisdiction code to a provider.
func (r *Registry) Register(jurisdiction string, p Provider) {
	r.providers[strings.ToUpper(jurisdiction)] = p
}

// ForJurisdiction returns the provider for a country code, or the fallback
// provider when none is registered.
func (r *Registry) ForJurisdiction(code string) Provider {
	if p, ok := r.providers[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return p
	}
	return r.fallback
}

// TaxableValue applies the valuation basis rules: when a minimum valuation
// floor exists and the declared price falls below it, the floor is taxed.
// A provider that signalled actual_invoice_required overrides the floor and
// the declared price is used as-is.
func TaxableValue(declared decimal.Decimal, rr api.RateResult) (decimal.Decimal, api.ValuationBasis) {
	if rr.Basis == api.BasisActualInvoiceRequired {
		return declared, api.BasisActualInvoiceRequired
	}
	if rr.MinimumValuation != nil && declared.LessThan(rr.MinimumValuation.Amount) {
		return rr.MinimumValuation.Amount, api.BasisMinimumFloor
	}
	return declared, api.BasisDeclared
}
