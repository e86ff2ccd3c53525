package utils

import (
	"math"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// MinorUnitDecimals is the USDC precision used for every advertised amount.
const MinorUnitDecimals = 6

var (
	nonPriceChars = regexp.MustCompile(`[^0-9.]`)
	leadingFloat  = regexp.MustCompile(`^[0-9]*\.?[0-9]*`)

	defaultDollars = decimal.NewFromInt(1)
	maxMinorUnits  = decimal.NewFromInt(math.MaxInt64)
)

// NormalizePrice converts a human price such as "$1.00" into USDC minor units.
//
// Every character other than digits and '.' is dropped and the longest leading
// decimal is parsed. Input that yields no number at all is priced at one
// dollar rather than rejected; callers rely on that default, so an unparseable
// price never makes a resource free or unreachable.
func NormalizePrice(price string) int64 {
	cleaned := nonPriceChars.ReplaceAllString(price, "")
	prefix := leadingFloat.FindString(cleaned)

	dollars, err := decimal.NewFromString(prefix)
	if err != nil {
		dollars = defaultDollars
	}

	minor := dollars.Shift(MinorUnitDecimals).Round(0)
	if minor.GreaterThan(maxMinorUnits) {
		return math.MaxInt64
	}
	return minor.IntPart()
}

// MinorUnitsString renders minor units as the integer string used in
// maxAmountRequired.
func MinorUnitsString(minor int64) string {
	return strconv.FormatInt(minor, 10)
}

// FormatMinorUnits renders minor units as a dollar string, e.g. 250000 -> "$0.25".
func FormatMinorUnits(minor int64) string {
	return "$" + decimal.New(minor, -MinorUnitDecimals).StringFixed(2)
}

// ParseMinorUnits parses a decimal integer amount string. Empty or invalid
// input yields ok=false.
func ParseMinorUnits(amount string) (int64, bool) {
	if amount == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(amount, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
