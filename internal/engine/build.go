package engine

import (
	"strings"

	"github.com/rs/zerolog"

	"landed-cost/internal/currency"
	"landed-cost/internal/fees"
	"landed-cost/internal/ratecache"
	"landed-cost/internal/tax"
	"landed-cost/internal/weight"
	"landed-cost/pkg/platform"
)

// Build wires a production orchestrator from configuration: shared rate
// cache, currency converter (live source when FX_RATES_URL is set), the
// jurisdiction tax registry (live source when TAX_RATES_URL is set), weight
// and fee resolvers. feeResolver and snapshots may be nil.
func Build(cfg Config, log zerolog.Logger, feeResolver *fees.Resolver, snapshots SnapshotRecorder) *Orchestrator {
	cfg = cfg.withDefaults()
	cache := ratecache.New()

	var fxSource currency.RateSource
	if cfg.FXRatesURL != "" {
		fxSource = currency.NewRemoteSource(platform.NewHTTPClient(cfg.ProviderTimeout), cfg.FXRatesURL)
	}
	converter := currency.NewConverter(cache, fxSource, currency.Config{
		TTL:     cfg.FXCacheTTL,
		Timeout: cfg.ProviderTimeout,
	})

	gst := tax.GSTConfig{TTL: cfg.TaxCacheTTL, Timeout: cfg.ProviderTimeout}
	if cfg.TaxRatesURL != "" {
		gst.Remote = tax.NewRemoteRates(platform.NewHTTPClient(cfg.ProviderTimeout), cfg.TaxRatesURL)
	}
	registry := tax.DefaultRegistry(cache, tax.RegistryConfig{GST: gst})

	if feeResolver == nil {
		feeResolver = fees.NewResolver()
	}

	return New(cfg, Deps{
		Log:       log,
		Cache:     cache,
		Converter: converter,
		Weights:   weight.NewResolver(cfg.DefaultWeightKg),
		Fees:      feeResolver,
		Taxes:     registry,
		Snapshots: snapshots,
	})
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
