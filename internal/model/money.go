package model

import (
	"errors"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Money column sizes, matching the NUMERIC(p, 2) columns of the schema.
const (
	MoneyScale     = 2
	PricePrecision = 12
	// AmountPrecision covers balances and ledger amounts.
	AmountPrecision = 14
)

// Money validation errors.
var (
	ErrMoneyScale = errors.New("more than two decimal places")
	ErrMoneyRange = errors.New("too many digits")
)

// CheckMoney reports whether d fits a NUMERIC(precision, 2) column exactly.
// It reads only the coefficient digits and the exponent and never rescales d,
// so values like 1e20000000 are rejected without allocating their expansion.
func CheckMoney(d decimal.Decimal, precision int) error {
	if d.IsZero() {
		return nil
	}

	digits := new(big.Int).Abs(d.Coefficient()).String()
	significant := strings.TrimRight(digits, "0")
	exp := int64(d.Exponent()) + int64(len(digits)-len(significant))

	if exp < -MoneyScale {
		return ErrMoneyScale
	}
	if int64(len(significant))+exp > int64(precision-MoneyScale) {
		return ErrMoneyRange
	}
	return nil
}
