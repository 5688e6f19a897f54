// Package currency resolves exchange rates, backed by the rate cache with a
// static fallback table.
package currency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"landed-cost/internal/ratecache"
	"landed-cost/pkg/api"
	qerr "landed-cost/pkg/errors"
)

// RateSource fetches a live exchange rate for a currency pair.
type RateSource interface {
	FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Converter resolves currency conversions. Lookup order: cache, live source
// within a bounded timeout, static fallback table.
type Converter struct {
	cache   *ratecache.Cache
	source  RateSource
	ttl     time.Duration
	timeout time.Duration
}

// Config holds converter tunables.
type Config struct {
	TTL     time.Duration // cache TTL for exchange rates
	Timeout time.Duration // bound on one live refresh attempt
}

func NewConverter(cache *ratecache.Cache, source RateSource, cfg Config) *Converter {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Converter{cache: cache, source: source, ttl: cfg.TTL, timeout: cfg.Timeout}
}

// Supported reports whether a currency has at least a fallback conversion
// path. Validation uses this to reject unknown target currencies up front.
func Supported(code string) bool {
	_, ok := fallbackUSDRates[strings.ToUpper(code)]
	return ok
}

// Convert resolves an exchange rate pair and applies it to amount.
// Same-currency conversion is an identity fast path with no cache lookup.
// The returned error is non-nil only when no conversion path exists at all.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (api.ConversionResult, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == to {
		return api.ConversionResult{Amount: amount, Rate: decimal.NewFromInt(1), Source: api.SourceExact}, nil
	}

	key := cacheKey(from, to)
	lookup, err := c.cache.GetOrFetch(ctx, key, c.ttl, func(ctx context.Context) (any, error) {
		if c.source == nil {
			return nil, fmt.Errorf("no live rate source configured")
		}
		fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.source.FetchRate(fetchCtx, from, to)
	})
	if err == nil {
		rate := lookup.Value.(decimal.Decimal)
		source := lookup.Source
		if lookup.Stale {
			source = api.SourceFallback
		}
		return api.ConversionResult{Amount: amount.Mul(rate), Rate: rate, Source: source}, nil
	}

	// Live/cached paths exhausted; use the static table.
	rate, ok := fallbackRate(from, to)
	if !ok {
		return api.ConversionResult{}, qerr.NewNoConversionPathError(from, to)
	}
	return api.ConversionResult{Amount: amount.Mul(rate), Rate: rate, Source: api.SourceFallback}, nil
}

func cacheKey(from, to string) string {
	return "fx:" + from + ":" + to
}

// fallbackRate derives a pair rate from the USD-based table, pivoting
// through USD when neither side is USD.
func fallbackRate(from, to string) (decimal.Decimal, bool) {
	fromUSD, okFrom := fallbackUSDRates[from]
	toUSD, okTo := fallbackUSDRates[to]
	if !okFrom || !okTo {
		return decimal.Zero, false
	}
	// rate(from->to) = (USD->to) / (USD->from)
	return toUSD.Div(fromUSD), true
}

// fallbackUSDRates maps USD to each supported currency. Used only when live
// and cached rates are unavailable; quotes priced from it carry
// Source=fallback and reduced confidence.
var fallbackUSDRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.92"),
	"GBP": decimal.RequireFromString("0.79"),
	"INR": decimal.RequireFromString("83.20"),
	"AUD": decimal.RequireFromString("1.52"),
	"NZD": decimal.RequireFromString("1.64"),
	"CAD": decimal.RequireFromString("1.36"),
	"SGD": decimal.RequireFromString("1.34"),
	"JPY": decimal.RequireFromString("149.50"),
	"CNY": decimal.RequireFromString("7.24"),
	"KRW": decimal.RequireFromString("1330.00"),
	"HKD": decimal.RequireFromString("7.82"),
	"CHF": decimal.RequireFromString("0.88"),
	"SEK": decimal.RequireFromString("10.45"),
	"DKK": decimal.RequireFromString("6.86"),
	"NOK": decimal.RequireFromString("10.60"),
	"PLN": decimal.RequireFromString("3.98"),
	"AED": decimal.RequireFromString("3.67"),
	"SAR": decimal.RequireFromString("3.75"),
	"ILS": decimal.RequireFromString("3.70"),
	"MXN": decimal.RequireFromString("17.10"),
	"BRL": decimal.RequireFromString("4.95"),
	"ZAR": decimal.RequireFromString("18.70"),
	"THB": decimal.RequireFromString("35.60"),
	"MYR": decimal.RequireFromString("4.68"),
	"VND": decimal.RequireFromString("24400.00"),
	"IDR": decimal.RequireFromString("15600.00"),
	"PHP": decimal.RequireFromString("55.90"),
	"TWD": decimal.RequireFromString("31.40"),
	"EGP": decimal.RequireFromString("30.90"),
	"NGN": decimal.RequireFromString("890.00"),
	"KES": decimal.RequireFromString("153.00"),
	"ARS": decimal.RequireFromString("820.00"),
	"CLP": decimal.RequireFromString("880.00"),
}
