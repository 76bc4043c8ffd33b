package utils

import "github.com/shopspring/decimal"

// FormatAmount renders an amount with exactly two decimals, e.g. 6 -> "6.00".
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
