package ctd

import "math"

// notionalYield is the standard yield at which conversion factors
// normalize deliverable bonds.
const notionalYield = 0.06

// Tenor is a years-months maturity bucket column of a factor table.
type Tenor struct {
	Years  int
	Months int
}

// YearsValue is the tenor as fractional years.
func (t Tenor) YearsValue() float64 {
	return float64(t.Years) + float64(t.Months)/12
}

// FactorTable is a coupon-row by maturity-bucket-column grid of
// conversion factors for one deliverable basket.
type FactorTable struct {
	Name    string
	Coupons []float64 // annual percent, ascending
	Tenors  []Tenor   // ascending
	Values  [][]float64
}

// ConversionFactor prices a bond with the given annual coupon (decimal)
// and years to maturity at the 6% notional yield, per unit face.
func ConversionFactor(couponRate, yearsToMaturity, yield float64) float64 {
	disc := math.Pow(1+yield, -yearsToMaturity)
	return couponRate/yield*(1-disc) + disc
}

// GenerateFactorTable builds the factor grid spanning a deliverable
// bracket: coupon rows in eighth-point steps from 1% to 10%, maturity
// columns in one-month steps across [minYears, maxYears].
func GenerateFactorTable(name string, minYears, maxYears float64) *FactorTable {
	t := &FactorTable{Name: name}

	for cpn := 1.0; cpn <= 10.0+1e-9; cpn += 0.125 {
		t.Coupons = append(t.Coupons, cpn)
	}

	firstMonth := int(math.Ceil(minYears*12 - 1e-9))
	lastMonth := int(math.Floor(maxYears*12 + 1e-9))
	for m := firstMonth; m <= lastMonth; m++ {
		t.Tenors = append(t.Tenors, Tenor{Years: m / 12, Months: m % 12})
	}

	t.Values = make([][]float64, len(t.Coupons))
	for i, cpn := range t.Coupons {
		row := make([]float64, len(t.Tenors))
		for j, tenor := range t.Tenors {
			row[j] = ConversionFactor(cpn/100, tenor.YearsValue(), notionalYield)
		}
		t.Values[i] = row
	}
	return t
}

// RoundToQuarter snaps a coupon to the nearest quarter point.
func RoundToQuarter(v float64) float64 {
	return math.Round(v*4) / 4
}
