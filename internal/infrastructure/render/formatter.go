package render

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/money"
)

// separators per language: decimal mark, thousands mark
var separators = map[string][2]string{
	"de": {",", "."},
	"fr": {",", " "},
	"en": {".", ","},
}

// BaseCurrencyFormatter renders amounts of the base currency
type BaseCurrencyFormatter struct {
	currency string
}

// NewBaseCurrencyFormatter creates a formatter for currency
func NewBaseCurrencyFormatter(currency string) *BaseCurrencyFormatter {
	return &BaseCurrencyFormatter{currency: currency}
}

// Format renders amount with two decimals, grouped thousands and the currency code
func (f *BaseCurrencyFormatter) Format(amount float64, lang string) string {
	sep, ok := separators[strings.ToLower(lang)]
	if !ok {
		sep = separators["en"]
	}

	d := money.Round(decimal.NewFromFloat(amount))
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(money.Places), ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(sep[1])
		}
		b.WriteRune(r)
	}
	return sign + b.String() + sep[0] + frac + " " + f.currency
}

var _ port.MoneyFormatter = (*BaseCurrencyFormatter)(nil)
