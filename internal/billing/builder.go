package billing

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Builder assembles full bill records. The random source and clock are
// injectable so tests can pin bill numbers, balances and dates.
type Builder struct {
	rng   *rand.Rand
	clock func() time.Time
}

// NewBuilder returns a Builder seeded from the current time.
func NewBuilder() *Builder {
	return &Builder{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		clock: time.Now,
	}
}

// NewBuilderWithSource returns a Builder using the given random source and
// clock, for deterministic tests.
func NewBuilderWithSource(rng *rand.Rand, clock func() time.Time) *Builder {
	return &Builder{rng: rng, clock: clock}
}

// Build validates the customer, computes the charges for the usage amount and
// assembles the immutable bill record. The issuing company is attached by
// type from the static directory.
func (b *Builder) Build(customer CustomerInfo, t UtilityType, usageAmount float64) (BillData, error) {
	if missing := missingFields(customer); len(missing) > 0 {
		return BillData{}, &MissingFieldsError{Fields: missing}
	}

	if customer.AccountNumber == "" {
		customer.AccountNumber = fmt.Sprintf("%010d", b.rng.Int63n(10_000_000_000))
	}

	bill, err := Compute(t, usageAmount)
	if err != nil {
		return BillData{}, err
	}

	// Bill numbers are a random draw, not a guaranteed-unique issuance; a
	// collision across generations is possible and accepted.
	bill.BillNumber = fmt.Sprintf("%s%07d", strings.ToUpper(string(t[0])), b.rng.Intn(10_000_000))

	now := b.clock()
	bill.BillDate = now
	bill.DueDate = now.AddDate(0, 0, 30)

	if b.rng.Float64() >= 0.7 {
		bill.PreviousBalance = float64(b.rng.Intn(5000))
	}
	bill.TotalDue = bill.Amount + bill.PreviousBalance

	return BillData{
		Customer: customer,
		Bill:     bill,
		Company:  CompanyFor(t),
	}, nil
}

func missingFields(c CustomerInfo) []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", c.Name},
		{"address", c.Address},
		{"city", c.City},
		{"state", c.State},
		{"zip", c.Zip},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
