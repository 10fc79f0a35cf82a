package tipjar

import (
	"errors"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MistDecimals is the number of decimal places between SUI and MIST.
const MistDecimals = 9

// MistPerSUI is the number of minor units in one SUI.
const MistPerSUI = 1_000_000_000

var ErrInvalidAmount = errors.New("invalid amount")

// Plain decimals only. Exponent notation would let a short input expand
// into a huge intermediate when scaled.
var amountPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}

// ParseAmount converts a decimal SUI string into MIST, flooring any digits
// past the ninth decimal place. The result must be a positive u64.
func ParseAmount(s string) (uint64, error) {
	d, ok := parseDecimal(s)
	if !ok {
		return 0, ErrInvalidAmount
	}
	mist := d.Shift(MistDecimals).Floor()
	if !mist.IsPositive() {
		return 0, ErrInvalidAmount
	}
	bi := mist.BigInt()
	if !bi.IsUint64() {
		return 0, ErrInvalidAmount
	}
	return bi.Uint64(), nil
}

// amountPositive reports whether s parses to a number above zero, before flooring.
func amountPositive(s string) bool {
	d, ok := parseDecimal(s)
	return ok && d.IsPositive()
}

// FormatSUI renders a MIST amount in SUI with a fixed number of decimal places.
func FormatSUI(mist uint64, places int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(mist), -MistDecimals).StringFixed(places)
}
