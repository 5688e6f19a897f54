// Package fees resolves handling, insurance, gateway and shipping charges
// from the regional pricing matrix with tiered fallback.
package fees

import (
	"strings"

	"github.com/shopspring/decimal"

	"landed-cost/pkg/region"
	"landed-cost/pkg/units"
)

// Tier identifies which level of the matrix satisfied a lookup.
type Tier string

const (
	TierCountry   Tier = "country"
	TierContinent Tier = "continent"
	TierGlobal    Tier = "global"
)

// HandlingPolicy selects how fixed and percentage handling charges combine.
type HandlingPolicy string

const (
	HandlingMax            HandlingPolicy = "max"
	HandlingSum            HandlingPolicy = "sum"
	HandlingPercentageOnly HandlingPolicy = "percentage_only"
	HandlingFixedOnly      HandlingPolicy = "fixed_only"
)

// Record is one row of the regional pricing matrix. All money values are in
// USD, the platform base currency.
type Record struct {
	HandlingFixed         decimal.Decimal
	HandlingPct           decimal.Decimal // fraction of order value
	HandlingCap           *decimal.Decimal
	InsuranceRate         decimal.Decimal // fraction of order value
	GatewayFeeRate        decimal.Decimal // fraction of order value
	GatewayFeeFixed       decimal.Decimal
	BaseShipping          decimal.Decimal
	CostPerKg             decimal.Decimal
	FreeShippingThreshold *decimal.Decimal // order value above which BaseShipping is waived
}

// Schedule is a resolved fee schedule plus where it came from.
type Schedule struct {
	Record
	Country string
	Tier    Tier
	// TierMisses counts lookup levels that had no entry before one matched.
	// Each miss is a fallback event in the confidence envelope, not an error.
	TierMisses int
}

// Resolver resolves fee schedules: country override, then continental
// default, then the global default record.
type Resolver struct {
	countries  map[string]Record
	continents map[region.Continent]Record
	global     Record
}

// NewResolver builds a resolver over the built-in matrix.
func NewResolver() *Resolver {
	return &Resolver{
		countries:  countryMatrix,
		continents: continentMatrix,
		global:     globalDefault,
	}
}

// NewResolverWithMatrix builds a resolver over an externally loaded matrix
// (e.g. the Postgres fee schedule store). Missing maps fall back to the
// built-in data so a partial load still quotes.
func NewResolverWithMatrix(countries map[string]Record, continents map[region.Continent]Record, global *Record) *Resolver {
	r := NewResolver()
	if len(countries) > 0 {
		r.countries = countries
	}
	if len(continents) > 0 {
		r.continents = continents
	}
	if global != nil {
		r.global = *global
	}
	return r
}

// Resolve returns the fee schedule for a destination country.
func (r *Resolver) Resolve(country string) Schedule {
	code := strings.ToUpper(strings.TrimSpace(country))

	if rec, ok := r.countries[code]; ok {
		return Schedule{Record: rec, Country: code, Tier: TierCountry}
	}

	if continent, ok := region.ContinentOf(code); ok {
		if rec, ok := r.continents[continent]; ok {
			return Schedule{Record: rec, Country: code, Tier: TierContinent, TierMisses: 1}
		}
		return Schedule{Record: r.global, Country: code, Tier: TierGlobal, TierMisses: 2}
	}

	return Schedule{Record: r.global, Country: code, Tier: TierGlobal, TierMisses: 2}
}

// Handling computes the handling charge for an order value under the given
// combination policy, applying the schedule's cap when present.
func (s Schedule) Handling(orderValue decimal.Decimal, policy HandlingPolicy) decimal.Decimal {
	pct := orderValue.Mul(s.HandlingPct)

	var charge decimal.Decimal
	switch policy {
	case HandlingSum:
		charge = s.HandlingFixed.Add(pct)
	case HandlingPercentageOnly:
		charge = pct
	case HandlingFixedOnly:
		charge = s.HandlingFixed
	default: // HandlingMax
		charge = decimal.Max(s.HandlingFixed, pct)
	}

	if s.HandlingCap != nil && charge.GreaterThan(*s.HandlingCap) {
		charge = *s.HandlingCap
	}
	return charge
}

// Shipping computes the shipping cost for a total chargeable weight. Orders
// above the free-shipping threshold have the base cost waived; the per-kg
// component always applies.
func (s Schedule) Shipping(totalWeightKg float64, orderValue decimal.Decimal) decimal.Decimal {
	base := s.BaseShipping
	if s.FreeShippingThreshold != nil && orderValue.GreaterThanOrEqual(*s.FreeShippingThreshold) {
		base = decimal.Zero
	}
	kg := decimal.NewFromFloat(units.ChargeableKg(totalWeightKg))
	return base.Add(s.CostPerKg.Mul(kg))
}

// Insurance computes the insurance premium for an order value.
func (s Schedule) Insurance(orderValue decimal.Decimal) decimal.Decimal {
	return orderValue.Mul(s.InsuranceRate)
}

// GatewayFee computes the payment gateway fee for a charged amount.
func (s Schedule) GatewayFee(chargedValue decimal.Decimal) decimal.Decimal {
	return chargedValue.Mul(s.GatewayFeeRate).Add(s.GatewayFeeFixed)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

// Built-in regional pricing matrix (USD).
var countryMatrix = map[string]Record{
	"IN": {
		HandlingFixed: d("5.00"), HandlingPct: d("0.02"), HandlingCap: dp("50.00"),
		InsuranceRate: d("0.010"), GatewayFeeRate: d("0.029"), GatewayFeeFixed: d("0.30"),
		BaseShipping: d("12.00"), CostPerKg: d("8.50"), FreeShippingThreshold: dp("500.00"),
	},
	"US": {
		HandlingFixed: d("3.00"), HandlingPct: d("0.015"), HandlingCap: dp("40.00"),
		InsuranceRate: d("0.008"), GatewayFeeRate: d("0.029"), GatewayFeeFixed: d("0.30"),
		BaseShipping: d("6.00"), CostPerKg: d("4.00"), FreeShippingThreshold: dp("300.00"),
	},
	"GB": {
		HandlingFixed: d("4.00"), HandlingPct: d("0.018"), HandlingCap: dp("45.00"),
		InsuranceRate: d("0.009"), GatewayFeeRate: d("0.025"), GatewayFeeFixed: d("0.25"),
		BaseShipping: d("9.00"), CostPerKg: d("6.00"), FreeShippingThreshold: dp("400.00"),
	},
	"DE": {
		HandlingFixed: d("4.00"), HandlingPct: d("0.018"), HandlingCap: dp("45.00"),
		InsuranceRate: d("0.009"), GatewayFeeRate: d("0.025"), GatewayFeeFixed: d("0.25"),
		BaseShipping: d("9.50"), CostPerKg: d("6.20"), FreeShippingThreshold: dp("400.00"),
	},
	"AU": {
		HandlingFixed: d("5.00"), HandlingPct: d("0.02"), HandlingCap: dp("55.00"),
		InsuranceRate: d("0.010"), GatewayFeeRate: d("0.029"), GatewayFeeFixed: d("0.30"),
		BaseShipping: d("14.00"), CostPerKg: d("9.00"), FreeShippingThreshold: dp("500.00"),
	},
	"SG": {
		HandlingFixed: d("4.00"), HandlingPct: d("0.015"), HandlingCap: dp("45.00"),
		InsuranceRate: d("0.008"), GatewayFeeRate: d("0.029"), GatewayFeeFixed: d("0.30"),
		BaseShipping: d("10.00"), CostPerKg: d("7.00"), FreeShippingThreshold: dp("450.00"),
	},
	"CA": {
		HandlingFixed: d("3.50"), HandlingPct: d("0.015"), HandlingCap: dp("40.00"),
		InsuranceRate: d("0.008"), GatewayFeeRate: d("0.029"), GatewayFeeFixed: d("0.30"),
		BaseShipping: d("7.50"), CostPerKg: d("5.00"), FreeShippingThreshold: dp("350.00"),
	},
	"AE": {
		HandlingFixed: d("5.00"), HandlingPct: d("0.02"), HandlingCap: dp("50.00"),
		InsuranceRate: d("0.010"), GatewayFeeRate: d("0.029"), GatewayFeeFixed: d("0.30"),
		BaseShipping: d("13.00"), CostPerKg: d("8.00"), FreeShippingThreshold: nil,
	},
	"JP": {
		HandlingFixed: d("4.50"), HandlingPct: d("0.018"), HandlingCap: dp("48.00"),
		InsuranceRate: d("0.009"), GatewayFeeRate: d("0.027"), GatewayFeeFixed: d("0.28"),
		BaseShipping: d("11.00"), CostPerKg: d("7.50"), FreeShippingThreshold: dp("450.00"),
	},
}

var continentMatrix = map[region.Continent]Record{
	region.Asia: {
		HandlingFixed: d("5.50"), HandlingPct: d("0.022"), HandlingCap: dp("60.00"),
		InsuranceRate: d("0.011"), GatewayFeeRate: d("0.030"), GatewayFeeFixed: d("0.30"),
		BaseShipping: d("14.00"), CostPerKg: d("9.50"), FreeShippingThreshold: nil,
	},
	region.Europe: {
		HandlingFixed: d("4.50"), HandlingPct: d("0.020"), HandlingCap: dp("50.00"),
		InsuranceRate: d("0.010"), GatewayFeeRate: d("0.026"), GatewayFeeFixed: d("0.25"),
		BaseShipping: d("10.50"), CostPerKg: d("7.00"), FreeShippingThreshold: nil,
	},
	region.NorthAmerica: {
		HandlingFixed: d("4.00"), HandlingPct: d("0.018"), HandlingCap: dp("45.00"),
		InsuranceRate: d("0.009"), GatewayFeeRate: d("0.029"), GatewayFeeFixed: d("0.30"),
		BaseShipping: d("8.00"), CostPerKg: d("5.50"), FreeShippingThreshold: nil,
	},
	region.SouthAmerica: {
		HandlingFixed: d("6.00"), HandlingPct: d("0.025"), HandlingCap: dp("65.00"),
		InsuranceRate: d("0.013"), GatewayFeeRate: d("0.034"), GatewayFeeFixed: d("0.35"),
		BaseShipping: d("16.00"), CostPerKg: d("11.00"), FreeShippingThreshold: nil,
	},
	region.Africa: {
		HandlingFixed: d("6.50"), HandlingPct: d("0.025"), HandlingCap: dp("65.00"),
		InsuranceRate: d("0.014"), GatewayFeeRate: d("0.035"), GatewayFeeFixed: d("0.35"),
		BaseShipping: d("17.00"), CostPerKg: d("12.00"), FreeShippingThreshold: nil,
	},
	region.Oceania: {
		HandlingFixed: d("5.50"), HandlingPct: d("0.022"), HandlingCap: dp("58.00"),
		InsuranceRate: d("0.011"), GatewayFeeRate: d("0.030"), GatewayFeeFixed: d("0.30"),
		BaseShipping: d("15.00"), CostPerKg: d("10.00"), FreeShippingThreshold: nil,
	},
}

var globalDefault = Record{
	HandlingFixed: d("7.00"), HandlingPct: d("0.025"), HandlingCap: dp("70.00"),
	InsuranceRate: d("0.015"), GatewayFeeRate: d("0.035"), GatewayFeeFixed: d("0.35"),
	BaseShipping: d("18.00"), CostPerKg: d("12.50"), FreeShippingThreshold: nil,
}
