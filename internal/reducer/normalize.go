package reducer

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// priceShift is the binary fixed-point scale used by on-chain prices:
// raw price = display price * 2^96, before decimal adjustment.
var priceShift = new(big.Int).Lsh(big.NewInt(1), 96)

// DefaultDecimals applies when an auction's currency or token decimals are
// unknown
const DefaultDecimals = 18

// NormalizeAmount converts a raw integer token amount into a decimal string
// scaled by the given decimals. Trailing zeros are trimmed: 41900000 at 6
// decimals yields "41.9".
func NormalizeAmount(raw string, decimals int) (string, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", fmt.Errorf("invalid raw amount %q", raw)
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String(), nil
}

// NormalizePrice converts a raw fixed-point price into a display-ready
// decimal string, pre-adjusted for the decimal-place difference between the
// auctioned token and the bidding currency so consumers never rescale it.
func NormalizePrice(raw string, tokenDecimals, currencyDecimals int) (string, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", fmt.Errorf("invalid raw price %q", raw)
	}

	price := decimal.NewFromBigInt(v, int32(tokenDecimals-currencyDecimals))
	return price.DivRound(decimal.NewFromBigInt(priceShift, 0), 18).String(), nil
}
