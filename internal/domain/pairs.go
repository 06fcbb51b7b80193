package domain

import (
	"regexp"
	"strings"
)

// SupportedPairs is the catalogue of instruments alerts can track.
var SupportedPairs = []string{
	"EURUSD", "GBPUSD", "USDJPY", "USDCHF",
	"AUDUSD", "USDCAD", "NZDUSD", "EURGBP",
	"EURJPY", "GBPJPY",
}

// priceRe allows up to five decimal places, matching broker pip precision.
var priceRe = regexp.MustCompile(`^\d+(\.\d{1,5})?$`)

func IsSupportedPair(pair string) bool {
	pair = strings.ToUpper(pair)
	for _, p := range SupportedPairs {
		if p == pair {
			return true
		}
	}
	return false
}

func IsValidPriceFormat(price string) bool {
	return priceRe.MatchString(price)
}
