package engine

import (
	"time"

	"landed-cost/internal/fees"
	"landed-cost/pkg/platform"
)

// TaxBase selects what value destination tax is levied on.
type TaxBase string

const (
	// TaxBaseItemPrice taxes the item's taxable value alone.
	TaxBaseItemPrice TaxBase = "item_price"
	// TaxBaseItemPricePlusDuty taxes the taxable value plus customs duty
	// (CIF-style, the common case for import GST/VAT).
	TaxBaseItemPricePlusDuty TaxBase = "item_price_plus_duty"
)

// Config holds orchestrator tunables.
type Config struct {
	// Workers bounds concurrent per-item resolution across all calculations.
	Workers int
	// CalcTimeout bounds one whole calculation. On expiry remaining lookups
	// degrade to fallback values; the calculation still succeeds.
	CalcTimeout time.Duration
	// ProviderTimeout bounds one provider lookup within a calculation.
	ProviderTimeout time.Duration

	FXCacheTTL  time.Duration
	TaxCacheTTL time.Duration

	HandlingPolicy  fees.HandlingPolicy
	TaxBase         TaxBase
	DefaultWeightKg float64
	// InsuranceDefault applies insurance when the request doesn't opt in.
	InsuranceDefault bool
	// ApplyOriginTax adds origin-country sales tax to the purchase subtotal.
	// Off by default: cross-border purchases are usually export-exempt.
	ApplyOriginTax bool

	// Optional live rate endpoints. Empty means static/fallback data only.
	FXRatesURL  string
	TaxRatesURL string
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.CalcTimeout <= 0 {
		c.CalcTimeout = 5 * time.Second
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 2 * time.Second
	}
	if c.FXCacheTTL <= 0 {
		c.FXCacheTTL = 15 * time.Minute
	}
	if c.TaxCacheTTL <= 0 {
		c.TaxCacheTTL = time.Hour
	}
	if c.HandlingPolicy == "" {
		c.HandlingPolicy = fees.HandlingMax
	}
	if c.TaxBase == "" {
		c.TaxBase = TaxBaseItemPricePlusDuty
	}
	if c.DefaultWeightKg <= 0 {
		c.DefaultWeightKg = 0.5
	}
	return c
}

// ConfigFromEnv reads the orchestrator configuration from the environment.
func ConfigFromEnv() Config {
	return Config{
		Workers:          platform.GetEnvInt("QUOTE_WORKERS", 8),
		CalcTimeout:      platform.GetEnvDuration("QUOTE_CALC_TIMEOUT", 5*time.Second),
		ProviderTimeout:  platform.GetEnvDuration("QUOTE_PROVIDER_TIMEOUT", 2*time.Second),
		FXCacheTTL:       platform.GetEnvDuration("QUOTE_CACHE_TTL_FX", 15*time.Minute),
		TaxCacheTTL:      platform.GetEnvDuration("QUOTE_CACHE_TTL_TAX", time.Hour),
		HandlingPolicy:   fees.HandlingPolicy(platform.GetEnv("QUOTE_HANDLING_POLICY", string(fees.HandlingMax))),
		TaxBase:          TaxBase(platform.GetEnv("QUOTE_TAX_BASE", string(TaxBaseItemPricePlusDuty))),
		DefaultWeightKg:  platform.GetEnvFloat("QUOTE_DEFAULT_WEIGHT_KG", 0.5),
		InsuranceDefault: platform.GetEnvBool("QUOTE_INSURANCE_DEFAULT", false),
		ApplyOriginTax:   platform.GetEnvBool("QUOTE_APPLY_ORIGIN_TAX", false),
		FXRatesURL:       platform.GetEnv("FX_RATES_URL", ""),
		TaxRatesURL:      platform.GetEnv("TAX_RATES_URL", ""),
	}
}
