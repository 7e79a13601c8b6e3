// All monetary values in the system are stored and moved around as signed
// integers in kopecks. Conversion to rubles happens only at the presentation
// boundary (JSON responses, email templates), never in storage or arithmetic.
package money

import (
	"fmt"
	"math"
)

// Kopeks is an amount in minor currency units. Positive values are credits,
// negative values are debits.
type Kopeks int64

const minorPerMajor = 100

// FromMajor converts an amount in major units (e.g. rubles) to kopecks,
// rounding half away from zero. Client input arrives in major units.
func FromMajor(amount float64) Kopeks {
	return Kopeks(math.Round(amount * minorPerMajor))
}

// Major converts kopecks to major units for display.
func (k Kopeks) Major() float64 {
	return float64(k) / minorPerMajor
}

// String renders the amount in major units with two decimal places.
func (k Kopeks) String() string {
	return fmt.Sprintf("%.2f", k.Major())
}
