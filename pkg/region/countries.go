// Package region provides the canonical country table used for validation,
// fee tier resolution and jurisdiction routing.
package region

import "strings"

// Continent groups countries for fee schedule fallback.
type Continent string

const (
	Asia         Continent = "asia"
	Europe       Continent = "europe"
	NorthAmerica Continent = "north_america"
	SouthAmerica Continent = "south_america"
	Africa       Continent = "africa"
	Oceania      Continent = "oceania"
)

// Country is one canonical country record.
type Country struct {
	Code      string
	Name      string
	Continent Continent
	Currency  string
}

var countries = map[string]Country{
	"US": {"US", "United States", NorthAmerica, "USD"},
	"CA": {"CA", "Canada", NorthAmerica, "CAD"},
	"MX": {"MX", "Mexico", NorthAmerica, "MXN"},
	"BR": {"BR", "Brazil", SouthAmerica, "BRL"},
	"AR": {"AR", "Argentina", SouthAmerica, "ARS"},
	"CL": {"CL", "Chile", SouthAmerica, "CLP"},
	"GB": {"GB", "United Kingdom", Europe, "GBP"},
	"DE": {"DE", "Germany", Europe, "EUR"},
	"FR": {"FR", "France", Europe, "EUR"},
	"IT": {"IT", "Italy", Europe, "EUR"},
	"ES": {"ES", "Spain", Europe, "EUR"},
	"NL": {"NL", "Netherlands", Europe, "EUR"},
	"BE": {"BE", "Belgium", Europe, "EUR"},
	"IE": {"IE", "Ireland", Europe, "EUR"},
	"PT": {"PT", "Portugal", Europe, "EUR"},
	"AT": {"AT", "Austria", Europe, "EUR"},
	"SE": {"SE", "Sweden", Europe, "SEK"},
	"DK": {"DK", "Denmark", Europe, "DKK"},
	"NO": {"NO", "Norway", Europe, "NOK"},
	"FI": {"FI", "Finland", Europe, "EUR"},
	"PL": {"PL", "Poland", Europe, "PLN"},
	"CH": {"CH", "Switzerland", Europe, "CHF"},
	"IN": {"IN", "India", Asia, "INR"},
	"CN": {"CN", "China", Asia, "CNY"},
	"JP": {"JP", "Japan", Asia, "JPY"},
	"KR": {"KR", "South Korea", Asia, "KRW"},
	"SG": {"SG", "Singapore", Asia, "SGD"},
	"MY": {"MY", "Malaysia", Asia, "MYR"},
	"TH": {"TH", "Thailand", Asia, "THB"},
	"VN": {"VN", "Vietnam", Asia, "VND"},
	"ID": {"ID", "Indonesia", Asia, "IDR"},
	"PH": {"PH", "Philippines", Asia, "PHP"},
	"AE": {"AE", "United Arab Emirates", Asia, "AED"},
	"SA": {"SA", "Saudi Arabia", Asia, "SAR"},
	"IL": {"IL", "Israel", Asia, "ILS"},
	"HK": {"HK", "Hong Kong", Asia, "HKD"},
	"TW": {"TW", "Taiwan", Asia, "TWD"},
	"ZA": {"ZA", "South Africa", Africa, "ZAR"},
	"NG": {"NG", "Nigeria", Africa, "NGN"},
	"EG": {"EG", "Egypt", Africa, "EGP"},
	"KE": {"KE", "Kenya", Africa, "KES"},
	"AU": {"AU", "Australia", Oceania, "AUD"},
	"NZ": {"NZ", "New Zealand", Oceania, "NZD"},
}

// Lookup returns the canonical record for an ISO 3166-1 alpha-2 code.
func Lookup(code string) (Country, bool) {
	c, ok := countries[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// IsKnown reports whether the country code is recognized.
func IsKnown(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// ContinentOf returns the continent for a country code.
func ContinentOf(code string) (Continent, bool) {
	c, ok := Lookup(code)
	if !ok {
		return "", false
	}
	return c.Continent, true
}

// CurrencyOf returns the home currency for a country code.
func CurrencyOf(code string) (string, bool) {
	c, ok := Lookup(code)
	if !ok {
		return "", false
	}
	return c.Currency, true
}
