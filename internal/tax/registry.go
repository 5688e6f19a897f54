package tax

import "landed-cost/internal/ratecache"

// RegistryConfig wires the default provider set.
type RegistryConfig struct {
	GST GSTConfig
}

// DefaultRegistry builds the production registry: GST regimes, VAT regimes,
// origin sales-tax regimes, and the static fallback for everything else.
func DefaultRegistry(cache *ratecache.Cache, cfg RegistryConfig) *Registry {
	r := NewRegistry(NewFallbackProvider())

	cfg.GST.Cache = cache
	gst := NewGSTProvider(cfg.GST)
	for jur := range gstTables {
		r.Register(jur, gst)
	}

	vat := NewVATProvider()
	for jur := range vatTables {
		r.Register(jur, vat)
	}

	sales := NewSalesTaxProvider()
	r.Register("US", sales)
	r.Register("CA", sales)

	return r
}
