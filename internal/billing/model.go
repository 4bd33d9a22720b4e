package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UtilityType identifies which utility a bill is issued for.
type UtilityType string

const (
	Water       UtilityType = "water"
	Electricity UtilityType = "electricity"
)

// ParseUtilityType validates a raw type string from an API request.
func ParseUtilityType(s string) (UtilityType, error) {
	switch UtilityType(strings.ToLower(s)) {
	case Water:
		return Water, nil
	case Electricity:
		return Electricity, nil
	default:
		return "", fmt.Errorf("unknown utility type: %q", s)
	}
}

// Unit returns the usage unit the type is metered in.
func (t UtilityType) Unit() string {
	if t == Water {
		return "gallons"
	}
	return "kWh"
}

// Label returns the capitalized display name.
func (t UtilityType) Label() string {
	if t == Water {
		return "Water"
	}
	return "Electricity"
}

// ErrInvalidUsage is returned when a negative usage amount reaches the
// calculator. Negative meter deltas are clamped upstream; a negative usage
// amount handed directly to Compute is a caller error.
var ErrInvalidUsage = errors.New("usage amount must be non-negative")

// MissingFieldsError reports every required customer field that was empty,
// in declaration order.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// ChargeLine is a resolved fixed charge snapshotted onto a bill. The snapshot
// is carried by value so later rate-schedule edits can never change an
// already-issued bill.
type ChargeLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// CustomerInfo is the customer block entered by the operator. All fields
// except AccountNumber are mandatory.
type CustomerInfo struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zip           string `json:"zip"`
	AccountNumber string `json:"accountNumber"`
}

// BillInfo is the computed bill entity. BillNumber, BillDate, DueDate, Type,
// FixedCharges and PreviousBalance are frozen once built; the derived fields
// (SubTotal, VAT, TaxLevy, Amount, TotalDue, UsageAmount) are replaced
// wholesale by Recalculate.
type BillInfo struct {
	Type            UtilityType  `json:"type"`
	UsageAmount     float64      `json:"usageAmount"`
	SubTotal        float64      `json:"subTotal"`
	FixedCharges    []ChargeLine `json:"fixedCharges"`
	VAT             float64      `json:"vat"`
	TaxLevy         float64      `json:"taxLevy"`
	Amount          float64      `json:"amount"`
	PreviousBalance float64      `json:"previousBalance"`
	TotalDue        float64      `json:"totalDue"`
	BillNumber      string       `json:"billNumber"`
	BillDate        time.Time    `json:"billDate"`
	DueDate         time.Time    `json:"dueDate"`
}

// FixedChargesTotal sums the snapshotted fixed charges.
func (b *BillInfo) FixedChargesTotal() float64 {
	var sum float64
	for _, c := range b.FixedCharges {
		sum += c.Amount
	}
	return sum
}

// CompanyInfo is the static issuing company block attached to a bill after
// computation. Logo holds raw PNG bytes for the renderer.
type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
	Logo    []byte `json:"-"`
}

// BillData is the aggregate handed to the document renderer.
type BillData struct {
	Customer CustomerInfo `json:"customer"`
	Bill     BillInfo     `json:"bill"`
	Company  CompanyInfo  `json:"company"`
}
