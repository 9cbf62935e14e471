// Package money formats minor-unit amounts using storefront money formats.
//
// A money format is a template such as "${{amount}}" or
// "{{amount_with_comma_separator}} kr" where the placeholder selects the
// delimiter style. Amounts are integer minor units (cents).
package money

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultFormat is used when a merchant has not configured a money format.
const DefaultFormat = "${{amount}}"

var placeholderRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Period-decimal locales group thousands with commas; comma-decimal locales
// group with periods. The printers give both styles without hand-rolled
// digit grouping.
var (
	periodDecimalPrinter = message.NewPrinter(language.English)
	commaDecimalPrinter  = message.NewPrinter(language.Dutch)
)

// Formatter renders minor-unit amounts according to a money format template.
type Formatter struct {
	format string
}

// New creates a formatter for the given money format template. An empty
// format falls back to DefaultFormat.
func New(format string) *Formatter {
	if strings.TrimSpace(format) == "" {
		format = DefaultFormat
	}
	return &Formatter{format: format}
}

// Format renders an amount of minor units as a display string.
func (f *Formatter) Format(minorUnits int64) string {
	format := DefaultFormat
	if f != nil && f.format != "" {
		format = f.format
	}

	match := placeholderRe.FindStringSubmatch(format)
	if match == nil {
		return format
	}

	value := formatPlaceholder(match[1], minorUnits)
	return placeholderRe.ReplaceAllLiteralString(format, value)
}

// FormatString renders a string amount of minor units. Non-numeric input
// renders as 0, matching the storefront formatter contract.
func (f *Formatter) FormatString(raw string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	minorUnits, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		minorUnits = 0
	}
	return f.Format(minorUnits)
}

func formatPlaceholder(placeholder string, minorUnits int64) string {
	major := float64(minorUnits) / 100.0

	switch placeholder {
	case "amount":
		return periodDecimalPrinter.Sprint(number.Decimal(major, number.Scale(2)))
	case "amount_no_decimals":
		return periodDecimalPrinter.Sprint(number.Decimal(major, number.Scale(0)))
	case "amount_with_comma_separator":
		return commaDecimalPrinter.Sprint(number.Decimal(major, number.Scale(2)))
	case "amount_no_decimals_with_comma_separator":
		return commaDecimalPrinter.Sprint(number.Decimal(major, number.Scale(0)))
	default:
		return "0"
	}
}
