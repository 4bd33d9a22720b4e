package billing

// RateSchedule holds the pricing constants for one utility type. Exactly one
// schedule exists per type and neither is mutated at runtime.
type RateSchedule struct {
	UnitPrice    float64
	FixedCharges []ChargeLine
	VATRate      float64
	TaxLevyRate  float64
}

const (
	vatRate     = 0.16
	taxLevyRate = 0.05
)

var waterSchedule = RateSchedule{
	UnitPrice: 120, // KES per gallon
	FixedCharges: []ChargeLine{
		{Name: "Sewage Charges", Amount: 100},
		{Name: "Service Charge", Amount: 100},
	},
	VATRate:     vatRate,
	TaxLevyRate: taxLevyRate,
}

var electricitySchedule = RateSchedule{
	UnitPrice: 24, // KES per kWh
	FixedCharges: []ChargeLine{
		{Name: "ERC Levy", Amount: 100},
		{Name: "REP Levy", Amount: 100},
	},
	VATRate:     vatRate,
	TaxLevyRate: taxLevyRate,
}

// Lookup resolves the rate schedule for a utility type. Total over both enum
// values; Water is the fallback so the zero-ish case still resolves.
func Lookup(t UtilityType) RateSchedule {
	if t == Electricity {
		return electricitySchedule
	}
	return waterSchedule
}
