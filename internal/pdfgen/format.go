package pdfgen

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer carries the single fixed locale every monetary value in a document
// renders through. One currency, one grouping convention.
var printer = message.NewPrinter(language.MustParse("en-KE"))

// FormatCurrency renders an amount in KES with en-KE digit grouping.
// Rounding to two decimals happens here and nowhere upstream.
func FormatCurrency(amount float64) string {
	return printer.Sprintf("KES %.2f", amount)
}

const dateLayout = "Jan 02, 2006"

// FormatDate renders bill and due dates with the one shared pattern.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
