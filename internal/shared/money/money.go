// Package money represents currency values as integer minor units to keep
// order arithmetic exact.
package money

import "fmt"

// Amount is a currency value in minor units (e.g. paise for INR).
type Amount int64

// MulQty scales the amount by an item quantity.
func (a Amount) MulQty(quantity int) Amount {
	return a * Amount(quantity)
}

// Percent applies a rate expressed in basis points, rounding half up.
// 700 basis points == 7%.
func (a Amount) Percent(basisPoints int64) Amount {
	product := int64(a) * basisPoints
	if product >= 0 {
		return Amount((product + 5_000) / 10_000)
	}
	return Amount((product - 5_000) / 10_000)
}

// String renders the amount with two decimal places for logs.
func (a Amount) String() string {
	units := int64(a) / 100
	cents := int64(a) % 100
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("%d.%02d", units, cents)
}
