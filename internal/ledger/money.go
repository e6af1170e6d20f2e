package ledger

import "github.com/govalues/money"

// Minor returns a's value in minor units. Amounts with more precision than
// the currency allows are truncated by the money package.
func Minor(a money.Amount) int64 {
	units, _ := a.MinorUnits()
	return units
}

// Amount builds an amount from minor units, falling back to a zero amount in
// the default currency if curr is unknown.
func Amount(curr string, minor int64) money.Amount {
	a, err := money.NewAmountFromMinorUnits(curr, minor)
	if err != nil {
		a, _ = money.NewAmountFromMinorUnits(DefaultCurrency, minor)
	}
	return a
}

// ValidCurrency reports whether curr is an ISO 4217 code the money package knows.
func ValidCurrency(curr string) bool {
	_, err := money.ParseCurr(curr)
	return err == nil
}

// DefaultCurrency is the base currency when none is configured.
const DefaultCurrency = "IDR"

// PreferenceCurrencies are the display currencies a user may choose.
var PreferenceCurrencies = []string{"IDR", "USD"}

// ValidPreference reports whether curr is one of PreferenceCurrencies.
func ValidPreference(curr string) bool {
	for _, c := range PreferenceCurrencies {
		if c == curr {
			return true
		}
	}
	return false
}

// Format renders minor units in curr, e.g. "IDR 40000.00".
func Format(curr string, minor int64) string {
	return Amount(curr, minor).String()
}
