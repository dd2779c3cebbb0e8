package database

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a pgtype.Numeric to a decimal; NULL and
// unparsable values become zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalToNumeric converts a decimal to a pgtype.Numeric with 2 decimal places.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// NumericToString formats money with 2 decimal places.
func NumericToString(n pgtype.Numeric) string {
	return NumericToDecimal(n).StringFixed(2)
}

// MaxMoney is the exclusive upper bound of a numeric(10,2) column.
var MaxMoney = decimal.New(1, 8)

// FitsMoney reports whether d is stored in a numeric(10,2) column without
// rounding or overflow. Negative values are rejected.
func FitsMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(MaxMoney) && d.Equal(d.Truncate(2))
}
