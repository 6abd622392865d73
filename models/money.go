package models

import "github.com/shopspring/decimal"

func init() {
	// Front ends read prices as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}
