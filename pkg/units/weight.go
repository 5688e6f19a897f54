// Package units provides canonical weight units and conversions.
package units

// Conversion factors to kilograms.
const (
	GramsPerKg  = 1000.0
	GramsPerOz  = 28.3495
	GramsPerLb  = 453.592
	OzPerLb     = 16.0
)

func GramsToKg(g float64) float64 { return g / GramsPerKg }
func OzToKg(oz float64) float64   { return oz * GramsPerOz / GramsPerKg }
func LbToKg(lb float64) float64   { return lb * GramsPerLb / GramsPerKg }
func KgToLb(kg float64) float64   { return kg * GramsPerKg / GramsPerLb }

// ChargeableStepKg is the carrier billing increment: shipments are billed in
// half-kilogram steps.
const ChargeableStepKg = 0.5

// ChargeableKg rounds a weight up to the next carrier billing increment.
// A 0.1 kg parcel is billed as 0.5 kg.
func ChargeableKg(kg float64) float64 {
	if kg <= 0 {
		return 0
	}
	steps := int(kg / ChargeableStepKg)
	if float64(steps)*ChargeableStepKg < kg {
		steps++
	}
	return float64(steps) * ChargeableStepKg
}
