package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseCurrency converts a currency string to minor units (cents).
//
// Everything except digits, '-' and '.' is discarded. A value without a
// decimal point is whole units; with one, only the first two fractional
// digits count (truncated, never rounded). The sign comes from a leading
// '-'.
func ParseCurrency(s string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '-' || r == '.' {
			return r
		}
		return -1
	}, s)

	if strings.Count(cleaned, "-") > 1 {
		return 0, fmt.Errorf("currency %q has more than one '-'", s)
	}
	if strings.Count(cleaned, ".") > 1 {
		return 0, fmt.Errorf("currency %q has more than one '.'", s)
	}
	if i := strings.IndexByte(cleaned, '-'); i > 0 {
		return 0, fmt.Errorf("currency %q has '-' after digits", s)
	}

	negative := strings.HasPrefix(cleaned, "-")
	digits := strings.TrimPrefix(cleaned, "-")
	whole, frac, hasPoint := strings.Cut(digits, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("currency %q has no digits", s)
	}

	var units int64
	if whole != "" {
		var err error
		units, err = strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing currency %q: %w", s, err)
		}
	}
	if units > math.MaxInt64/100 {
		return 0, fmt.Errorf("currency %q is out of range", s)
	}
	cents := units * 100

	if hasPoint {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		frac += strings.Repeat("0", 2-len(frac))
		minor, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing currency %q: %w", s, err)
		}
		if cents > math.MaxInt64-minor {
			return 0, fmt.Errorf("currency %q is out of range", s)
		}
		cents += minor
	}

	if negative {
		cents = -cents
	}
	return cents, nil
}
