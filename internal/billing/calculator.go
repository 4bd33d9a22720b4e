package billing

// Compute produces the itemized charge breakdown for the given usage. The
// bill number, dates and previous balance are filled in by the Builder, not
// here. All values stay unrounded float64 KES; rounding happens only at
// display formatting so repeated recalculation cannot drift.
func Compute(t UtilityType, usageAmount float64) (BillInfo, error) {
	if usageAmount < 0 {
		return BillInfo{}, ErrInvalidUsage
	}

	sched := Lookup(t)

	charges := make([]ChargeLine, len(sched.FixedCharges))
	copy(charges, sched.FixedCharges)

	subTotal := usageAmount * sched.UnitPrice
	vat := subTotal * sched.VATRate
	taxLevy := subTotal * sched.TaxLevyRate

	bill := BillInfo{
		Type:         t,
		UsageAmount:  usageAmount,
		SubTotal:     subTotal,
		FixedCharges: charges,
		VAT:          vat,
		TaxLevy:      taxLevy,
	}
	bill.Amount = subTotal + vat + taxLevy + bill.FixedChargesTotal()
	return bill, nil
}

// Recalculate recomputes a bill's derived fields after a meter-reading edit.
// Usage is the reading delta clamped at zero; a current reading below the
// previous one is tolerated, not rejected. The bill number, dates, type,
// fixed-charge snapshot and previous balance are untouched, so calling this
// twice with the same readings yields identical output.
func Recalculate(bill BillInfo, previousReading, currentReading float64) BillInfo {
	usage := currentReading - previousReading
	if usage < 0 {
		usage = 0
	}

	sched := Lookup(bill.Type)

	out := bill
	out.UsageAmount = usage
	out.SubTotal = usage * sched.UnitPrice
	out.VAT = out.SubTotal * sched.VATRate
	out.TaxLevy = out.SubTotal * sched.TaxLevyRate
	out.Amount = out.SubTotal + out.VAT + out.TaxLevy + out.FixedChargesTotal()
	out.TotalDue = out.Amount + out.PreviousBalance
	return out
}
