package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// RatioPrecision is the number of fractional digits kept when dividing on-chain integers.
const RatioPrecision = 36

// FormatBigInt converts a big.Int value to a human-readable string,
// considering the given number of decimals.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// Ratio returns num/den rounded to RatioPrecision fractional digits.
// The caller guarantees den is non-zero.
func Ratio(num, den *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(den, 0), RatioPrecision)
}

// Normalize scales a base-unit amount down by 10^decimals. The shift is exact.
func Normalize(amount decimal.Decimal, decimals uint8) decimal.Decimal {
	return amount.Shift(-int32(decimals))
}

// IsZero reports whether v is nil or zero.
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}
