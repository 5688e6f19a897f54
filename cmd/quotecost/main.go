// quotecost - landed-cost quote engine CLI
//
// Usage:
//   quotecost quote --origin US --destination IN --currency INR --price 100 --category electronics
//   quotecost batch --file requests.json
//   quotecost rates --jurisdiction IN --class electronics
//   quotecost serve
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"landed-cost/api"
	"landed-cost/internal/engine"
	"landed-cost/internal/fees"
	"landed-cost/internal/ratecache"
	"landed-cost/internal/tax"
	capi "landed-cost/pkg/api"
	"landed-cost/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "quotecost",
		Usage:   "Landed-cost quote engine - customs, taxes and fees for cross-border purchases",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "tax-base",
				Usage:   "Destination tax base (item_price, item_price_plus_duty)",
				EnvVars: []string{"QUOTE_TAX_BASE"},
			},
			&cli.StringFlag{
				Name:    "handling-policy",
				Usage:   "Handling charge policy (max, sum, percentage_only, fixed_only)",
				EnvVars: []string{"QUOTE_HANDLING_POLICY"},
			},
		},

		Commands: []*cli.Command{
			quoteCommand(),
			batchCommand(),
			ratesCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildEngine(c *cli.Context) *engine.Orchestrator {
	cfg := engine.ConfigFromEnv()
	if v := c.String("tax-base"); v != "" {
		cfg.TaxBase = engine.TaxBase(v)
	}
	if v := c.String("handling-policy"); v != "" {
		cfg.HandlingPolicy = fees.HandlingPolicy(v)
	}
	return engine.Build(cfg, platform.NewLogger("quotecost"), nil, nil)
}

// =============================================================================
// QUOTE COMMAND
// =============================================================================

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Calculate the landed cost for a single item",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "request",
				Usage: "Path to a calculation request JSON file (overrides the item flags)",
			},
			&cli.StringFlag{Name: "origin", Value: "US", Usage: "Origin country code"},
			&cli.StringFlag{Name: "destination", Aliases: []string{"d"}, Usage: "Destination country code", Required: false},
			&cli.StringFlag{Name: "currency", Value: "USD", Usage: "Target currency"},
			&cli.StringFlag{Name: "price", Value: "0", Usage: "Declared unit price (USD)"},
			&cli.IntFlag{Name: "quantity", Aliases: []string{"q"}, Value: 1, Usage: "Quantity"},
			&cli.StringFlag{Name: "category", Usage: "Item category (electronics, apparel, ...)"},
			&cli.Float64Flag{Name: "weight", Usage: "Item weight in kg (estimated from category when omitted)"},
			&cli.BoolFlag{Name: "insurance", Usage: "Include insurance"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table", Usage: "Output format (table, json)"},
		},
		Action: runQuote,
	}
}

func runQuote(c *cli.Context) error {
	var req capi.CalculationRequest
	if path := c.String("request"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read request file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("invalid request file: %w", err)
		}
	} else {
		if c.String("destination") == "" {
			return fmt.Errorf("--destination is required (or use --request)")
		}
		price, err := decimal.NewFromString(c.String("price"))
		if err != nil {
			return fmt.Errorf("invalid --price: %w", err)
		}
		item := capi.ItemInput{
			ID:        "item-1",
			UnitPrice: price,
			Quantity:  c.Int("quantity"),
			Category:  c.String("category"),
		}
		if c.IsSet("weight") {
			kg := c.Float64("weight")
			item.WeightKg = &kg
		}
		req = capi.CalculationRequest{
			OriginCountry:      c.String("origin"),
			DestinationCountry: c.String("destination"),
			TargetCurrency:     c.String("currency"),
			Items:              []capi.ItemInput{item},
			IncludeInsurance:   c.Bool("insurance"),
		}
	}

	result := buildEngine(c).Calculate(context.Background(), req)

	if c.String("format") == "json" {
		return printJSON(result)
	}
	printQuote(result)
	if !result.Success {
		return cli.Exit("", 1)
	}
	return nil
}

func printQuote(result capi.QuoteCalculationResult) {
	if !result.Success {
		fmt.Printf("Quote failed: %s\n", result.Error)
		if result.Validation != nil {
			for _, ve := range result.Validation.Errors {
				fmt.Printf("  %-24s %s\n", ve.Field, ve.Message)
			}
		}
		return
	}

	b := result.Breakdown
	fmt.Printf("Quote %s (%s)\n\n", result.ID, b.Currency)
	fmt.Printf("  %-22s %12s\n", "Items subtotal", b.ItemsSubtotal.StringFixed(2))
	fmt.Printf("  %-22s %12s\n", "Shipping", b.Shipping.StringFixed(2))
	fmt.Printf("  %-22s %12s\n", "Customs duty", b.CustomsTotal.StringFixed(2))
	fmt.Printf("  %-22s %12s\n", "Destination tax", b.DestinationTaxTotal.StringFixed(2))
	fmt.Printf("  %-22s %12s\n", "Handling", b.Handling.StringFixed(2))
	fmt.Printf("  %-22s %12s\n", "Insurance", b.Insurance.StringFixed(2))
	fmt.Printf("  %-22s %12s\n", "Gateway fee", b.GatewayFee.StringFixed(2))
	fmt.Printf("  %-22s %12s\n", "-----", "-----")
	fmt.Printf("  %-22s %12s\n\n", "Grand total", b.GrandTotal.StringFixed(2))
	fmt.Printf("  Confidence: %.2f (live: %d, cached: %d, fallback: %d)\n",
		result.Confidence.Score,
		result.Confidence.APICallsMade,
		result.Confidence.CacheHits,
		result.Confidence.FallbacksUsed,
	)
}

// =============================================================================
// BATCH COMMAND
// =============================================================================

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Calculate landed costs for a batch request file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to a batch request JSON file ([{id, request}, ...])",
				Required: true,
			},
		},
		Action: runBatch,
	}
}

func runBatch(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}
	var reqs []capi.BatchRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return fmt.Errorf("invalid batch file: %w", err)
	}
	if len(reqs) == 0 {
		return fmt.Errorf("batch file contains no requests")
	}

	results := buildEngine(c).CalculateBatch(context.Background(), reqs)
	return printJSON(results)
}

// =============================================================================
// RATES COMMAND
// =============================================================================

func ratesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rates",
		Usage: "Show the tax and customs rates for a jurisdiction/class pair",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "jurisdiction", Aliases: []string{"j"}, Required: true, Usage: "Jurisdiction country code"},
			&cli.StringFlag{Name: "class", Usage: "Item class (electronics, apparel, ...)"},
			&cli.StringFlag{Name: "value", Value: "100", Usage: "Declared valuation (USD), affects de-minimis relief"},
		},
		Action: runRates,
	}
}

func runRates(c *cli.Context) error {
	value, err := decimal.NewFromString(c.String("value"))
	if err != nil {
		return fmt.Errorf("invalid --value: %w", err)
	}

	registry := tax.DefaultRegistry(ratecache.New(), tax.RegistryConfig{})
	provider := registry.ForJurisdiction(c.String("jurisdiction"))
	rate := provider.GetRate(context.Background(), c.String("jurisdiction"), c.String("class"), value)

	fmt.Printf("Provider:    %s\n", provider.Name())
	fmt.Printf("Tax rate:    %s\n", rate.Rate.String())
	fmt.Printf("Customs:     %s\n", rate.CustomsRate.String())
	if rate.MinimumValuation != nil {
		fmt.Printf("Floor:       %s %s\n", rate.MinimumValuation.Amount.StringFixed(2), rate.MinimumValuation.Currency)
	}
	if rate.Basis != "" {
		fmt.Printf("Basis:       %s\n", rate.Basis)
	}
	fmt.Printf("Source:      %s\n", rate.Source)
	fmt.Printf("Confidence:  %.2f\n", rate.Confidence)
	return nil
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the quote API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP port",
				EnvVars: []string{"PORT"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	log := platform.NewLogger("quote-api")
	orch := buildEngine(c)

	cfg := api.DefaultConfig()
	cfg.Port = c.Int("port")
	return api.NewServer(orch, nil, cfg, log).StartWithGracefulShutdown()
}

// =============================================================================
// HELPERS
// =============================================================================

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
