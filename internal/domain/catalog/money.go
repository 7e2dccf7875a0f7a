package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in an ISO-4217 currency
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney creates a Money with an upper-cased currency code
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(strings.TrimSpace(currency))}
}

// String returns e.g. "120.50 CZK"
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
